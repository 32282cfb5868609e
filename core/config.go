package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string `yaml:"env" env:"ENV" env-default:"prod"`
	TelegramApiKey string `yaml:"telegram_api_key" env:"TELEGRAM_API_KEY" env-default:""`
	Username       string `yaml:"username" env-default:""`
	Firefly        struct {
		ClientId            string        `yaml:"client_id" env:"FIREFLY_CLIENT_ID" env-default:""`
		ClientSecret        string        `yaml:"client_secret" env:"FIREFLY_CLIENT_SECRET" env-default:""`
		DefaultSize         string        `yaml:"default_size" env-default:"2048x2048"`
		DefaultContentClass string        `yaml:"default_content_class" env-default:"photo"`
		DefaultModel        string        `yaml:"default_model" env-default:"image4_standard"`
		NumVariations       int           `yaml:"num_variations" env-default:"1"`
		PollTimeout         time.Duration `yaml:"poll_timeout" env-default:"2m"`
		PollInterval        time.Duration `yaml:"poll_interval" env-default:"2s"`
		VerifyOnStart       bool          `yaml:"verify_on_start" env-default:"false"`
	} `yaml:"firefly"`
	History struct {
		Retention time.Duration `yaml:"retention" env-default:"720h"`
	} `yaml:"history"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env-default:"pass"`
		Database string `yaml:"database" env-default:""`
	} `yaml:"mongo"`
}

var instance *Config
var once sync.Once

func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
		}
	})
	return instance, err
}

func MustLoad(path string) *Config {
	conf, err := GetConfig(path)
	if err != nil {
		panic(err)
	}
	return conf
}
