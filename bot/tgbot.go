package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"Flicker/core"
	"Flicker/lib/sl"
)

const errorResponse = "Sorry, something went wrong. Please try again later."

type TgBot struct {
	conf        *core.Config
	log         *slog.Logger
	api         *tgbotapi.BotAPI
	images      core.ImageService
	botUsername string

	rootCtx  context.Context
	cancel   context.CancelFunc
	shutdown chan struct{}
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		conf:        conf,
		log:         log.With(sl.Module("tgbot")),
		botUsername: conf.Username,
		shutdown:    make(chan struct{}),
	}

	api, err := tgbotapi.NewBotAPI(conf.TelegramApiKey)
	if err != nil {
		return nil, err
	}
	tgBot.api = api

	return tgBot, nil
}

// SetImageService sets the image generation service
func (t *TgBot) SetImageService(images core.ImageService) {
	t.images = images
}

func (t *TgBot) Start() error {
	t.rootCtx, t.cancel = context.WithCancel(context.Background())

	// Set up an update configuration
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	// Start listening for updates
	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}

	for {
		select {
		case <-t.shutdown:
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			t.handleMessage(update.Message)
		}
	}
}

// Stop ends the update loop and cancels in-flight generations so their
// polling stops promptly.
func (t *TgBot) Stop() {
	close(t.shutdown)
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *TgBot) handleMessage(incoming *tgbotapi.Message) {
	chat := incoming.Chat

	if !incoming.IsCommand() {
		return
	}

	logText := incoming.Text
	if len(logText) > 50 {
		logText = logText[:50] + "..."
	}
	t.log.With(
		slog.String("user", incoming.From.UserName),
		slog.String("text", logText),
	).Info("incoming command")

	switch incoming.Command() {
	case "help", "start":
		text := "You can use the following commands:\n"
		text += "/help - show this help\n"
		text += "/firefly <prompt> - generate an image with Adobe Firefly\n"
		text += "/history - show your recent generations\n"
		text += "/settings - show your generation settings\n"
		text += "/setsize <WIDTHxHEIGHT> - set your preferred image size\n"
		text += "/setstyle <photo|art> - set your preferred content class\n"
		text += "/setmodel <model> - set your preferred model\n"
		t.plainResponse(chat.ID, text)

	case "firefly":
		// Rebuild the command without a possible @botname suffix.
		go t.generateResponse(chat.ID, "/firefly "+incoming.CommandArguments())

	case "history":
		t.plainResponse(chat.ID, t.images.History(chat.ID))

	case "settings":
		t.plainResponse(chat.ID, t.images.Settings(chat.ID))

	case "setsize":
		t.plainResponse(chat.ID, t.images.SetPreference(chat.ID, "size", incoming.CommandArguments()))

	case "setstyle":
		t.plainResponse(chat.ID, t.images.SetPreference(chat.ID, "style", incoming.CommandArguments()))

	case "setmodel":
		t.plainResponse(chat.ID, t.images.SetPreference(chat.ID, "model", incoming.CommandArguments()))
	}
}

// generateResponse runs one generation while keeping the "uploading photo"
// chat action alive, then sends the materialized content.
func (t *TgBot) generateResponse(chatId int64, request string) {
	stopTicker := make(chan bool)
	replyReady := make(chan string)

	go func() {
		t.sendChatAction(chatId, tgbotapi.ChatUploadPhoto)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.sendChatAction(chatId, tgbotapi.ChatUploadPhoto)
			case <-stopTicker:
				return
			}
		}
	}()

	go func() {
		reply := t.images.HandleMessage(t.rootCtx, chatId, request)
		if reply == "" {
			reply = errorResponse
		}
		replyReady <- reply
	}()

	reply := <-replyReady
	stopTicker <- true

	t.markdownResponse(chatId, reply)
}

func (t *TgBot) sendChatAction(chatId int64, action string) {
	msg := tgbotapi.NewChatAction(chatId, action)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sending chat action", sl.Err(err))
	}
}

func (t *TgBot) markdownResponse(chatId int64, text string) {
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sending message", sl.Err(err))
	}
}

func (t *TgBot) plainResponse(chatId int64, text string) {
	msg := tgbotapi.NewMessage(chatId, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sending message", sl.Err(err))
	}
}
