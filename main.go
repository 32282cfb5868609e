package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Flicker/bot"
	"Flicker/core"
	"Flicker/firefly"
	"Flicker/lib/sl"
	"Flicker/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("model", conf.Firefly.DefaultModel),
	).Info("starting flicker bot")

	// Initialize storage based on config
	var store storage.GenerationStorage
	var prefs storage.PreferencesStorage
	if conf.Mongo.Enabled {
		mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:%s",
			conf.Mongo.User, conf.Mongo.Password,
			conf.Mongo.Host, conf.Mongo.Port)
		mongoStore, err := storage.NewMongoStorage(mongoURI, conf.Mongo.Database, log)
		if err != nil {
			log.With(
				slog.String("db", conf.Mongo.Database),
				slog.String("user", conf.Mongo.User),
				slog.String("host", conf.Mongo.Host),
			).Error("falling back to memory", sl.Err(err))
			store = storage.NewMemoryStorage()
			prefs = storage.NewMemoryPreferencesStorage()
		} else {
			store = mongoStore
			mongoPrefs, err := storage.NewMongoPreferencesStorage(mongoStore.GetClient(), mongoStore.GetDatabase(), log)
			if err != nil {
				log.Error("falling back to memory preferences", sl.Err(err))
				prefs = storage.NewMemoryPreferencesStorage()
			} else {
				prefs = mongoPrefs
			}
			log.Info("using MongoDB storage")
		}
	} else {
		store = storage.NewMemoryStorage()
		prefs = storage.NewMemoryPreferencesStorage()
		log.Info("using in-memory storage")
	}

	images := firefly.NewClient(conf, log, store, prefs)

	if conf.Firefly.VerifyOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := images.VerifyCredentials(ctx); err != nil {
			log.Warn("could not verify Adobe Firefly credentials", sl.Err(err))
		}
		cancel()
	}

	pruner := storage.NewPruner(store, conf.History.Retention, log)
	pruner.Start()

	tgBot, err := bot.NewTgBot(conf, log)
	if err != nil {
		log.Error("creating telegram", sl.Err(err))
		return
	}

	tgBot.SetImageService(images)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in goroutine
	go func() {
		if err := tgBot.Start(); err != nil {
			log.Error("bot stopped with error", sl.Err(err))
		}
	}()

	log.Info("bot started")

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	// Graceful shutdown
	tgBot.Stop()
	pruner.Stop()

	// Close storage connections
	if err := images.Close(); err != nil {
		log.Error("error closing image service", sl.Err(err))
	}

	log.Info("shutdown complete")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
