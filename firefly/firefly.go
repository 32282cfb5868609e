package firefly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"Flicker/core"
	"Flicker/lib/sl"
	"Flicker/storage"
)

const (
	historyLimit  = 10
	maxVariations = 4
)

var _ core.ImageService = (*Client)(nil)

// Client drives one generation invocation end to end: resolve parameters,
// obtain a token, submit the job, poll it to a terminal state and materialize
// the outcome. The token cache is the only state shared between concurrent
// invocations.
type Client struct {
	conf  *core.Config
	log   *slog.Logger
	store storage.GenerationStorage
	prefs storage.PreferencesStorage

	httpClient  *http.Client
	tokens      *tokenSource
	clientId    string
	generateUrl string

	pollTimeout  time.Duration
	pollInterval time.Duration
}

func NewClient(conf *core.Config, log *slog.Logger, store storage.GenerationStorage, prefs storage.PreferencesStorage) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	return &Client{
		conf:         conf,
		log:          log.With(sl.Module("firefly")),
		store:        store,
		prefs:        prefs,
		httpClient:   httpClient,
		tokens:       newTokenSource(conf.Firefly.ClientId, conf.Firefly.ClientSecret, httpClient, log),
		clientId:     conf.Firefly.ClientId,
		generateUrl:  defaultGenerateUrl,
		pollTimeout:  conf.Firefly.PollTimeout,
		pollInterval: conf.Firefly.PollInterval,
	}
}

// HandleMessage processes one /firefly command and returns render-ready chat
// content: either markdown image references or a single failure message.
// Every fault is converted here; nothing propagates to the host.
func (c *Client) HandleMessage(ctx context.Context, userId int64, text string) string {
	prompt, ok := ParseCommand(text)
	if !ok || prompt == "" {
		return UsageMessage
	}

	if c.conf.Firefly.ClientId == "" || c.conf.Firefly.ClientSecret == "" {
		return "Adobe Firefly credentials are not configured. Set the firefly client_id and client_secret in the admin config."
	}

	invocation := uuid.NewString()
	log := c.log.With(
		slog.String("invocation", invocation),
		slog.Int64("user", userId),
	)

	cfg, err := c.resolveConfig(userId)
	if err != nil {
		log.Warn("invalid generation settings", sl.Err(err))
		return materializeError(err)
	}

	logPrompt := prompt
	if len(logPrompt) > 50 {
		logPrompt = logPrompt[:50] + "..."
	}
	log.With(
		slog.String("prompt", logPrompt),
		slog.String("model", cfg.Model),
		slog.String("size", cfg.Size.String()),
	).Info("starting generation")

	refs, jobId, err := c.generate(ctx, log, prompt, cfg)

	record := &storage.GenerationRecord{
		Id:           invocation,
		UserId:       userId,
		Prompt:       prompt,
		Model:        cfg.Model,
		Size:         cfg.Size.String(),
		ContentClass: cfg.ContentClass,
		JobId:        jobId,
		CreatedAt:    time.Now(),
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
	} else {
		record.Status = "succeeded"
		record.ImageUrls = refs
	}
	if saveErr := c.store.SaveRecord(record); saveErr != nil {
		log.Error("saving generation record", sl.Err(saveErr))
	}

	if err != nil {
		log.Warn("generation failed", sl.Err(err))
		return materializeError(err)
	}

	log.With(slog.Int("images", len(refs))).Info("generation complete")
	return materialize(refs)
}

// generate runs submit and poll with the single re-authentication retry: if
// either stage reports an auth rejection, the token is refreshed once and the
// stage repeated once. A second rejection is fatal. The poll deadline is
// wall-clock from the first successful submission and survives the retry.
func (c *Client) generate(ctx context.Context, log *slog.Logger, prompt string, cfg GenerationConfig) ([]string, string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, "", err
	}

	request := NewGenerateRequest(prompt, cfg)

	authRetried := false
	handle, err := c.submit(ctx, token, request, cfg.Model)
	if errors.Is(err, ErrAuth) {
		log.Warn("token rejected on submission, refreshing once", sl.Err(err))
		authRetried = true
		token, err = c.refreshToken(ctx)
		if err != nil {
			return nil, "", err
		}
		handle, err = c.submit(ctx, token, request, cfg.Model)
	}
	if err != nil {
		return nil, "", err
	}

	deadline := time.Now().Add(c.pollTimeout)
	refs, err := c.pollUntilDone(ctx, token, handle, deadline)
	if errors.Is(err, ErrAuth) && !authRetried {
		log.Warn("token rejected while polling, refreshing once", sl.Err(err))
		token, err = c.refreshToken(ctx)
		if err != nil {
			return nil, handle.JobId, err
		}
		refs, err = c.pollUntilDone(ctx, token, handle, deadline)
	}
	return refs, handle.JobId, err
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.tokens.Invalidate()
	return c.tokens.Token(ctx)
}

// resolveConfig overlays the user's stored preferences on the admin defaults
// and validates the combination once per invocation.
func (c *Client) resolveConfig(userId int64) (GenerationConfig, error) {
	model := c.conf.Firefly.DefaultModel
	size := c.conf.Firefly.DefaultSize
	class := c.conf.Firefly.DefaultContentClass
	sizeOverridden := false

	if c.prefs != nil {
		prefs, err := c.prefs.GetUserPreferences(userId)
		if err != nil {
			c.log.Error("loading preferences", sl.Err(err))
		} else if prefs != nil {
			if prefs.Model != "" {
				model = prefs.Model
			}
			if prefs.Size != "" {
				size = prefs.Size
				sizeOverridden = true
			}
			if prefs.ContentClass != "" {
				class = prefs.ContentClass
			}
		}
	}

	// A model override can land the invocation in the other size family. An
	// inherited admin default size then maps to the family's square size; an
	// explicit user size must be legal as chosen.
	if !sizeOverridden {
		if parsed, err := ParseSize(size); err == nil {
			if sizes, err := FamilySizes(model); err == nil && !sizeAllowed(parsed, sizes) {
				size = sizes[0].String()
			}
		}
	}

	cfg, err := Resolve(model, size, class)
	if err != nil {
		return cfg, err
	}
	cfg.NumVariations = clampVariations(c.conf.Firefly.NumVariations)
	return cfg, nil
}

// SetPreference stores one per-user override (size, style or model) and
// returns a confirmation or the legal set when the value is not accepted.
func (c *Client) SetPreference(userId int64, field string, value string) string {
	if c.prefs == nil {
		return "Preferences are not available."
	}

	value = strings.TrimSpace(value)

	prefs, err := c.prefs.GetUserPreferences(userId)
	if err != nil {
		c.log.Error("loading preferences", sl.Err(err))
		return "Could not load your settings, please try again later."
	}
	if prefs == nil {
		prefs = &storage.UserPreferences{UserId: userId}
	}

	model := c.conf.Firefly.DefaultModel
	if prefs.Model != "" {
		model = prefs.Model
	}

	switch field {
	case "size":
		if value == "" {
			sizes, _ := FamilySizes(model)
			return fmt.Sprintf("Usage: /setsize WIDTHxHEIGHT. Sizes for %s: %s", model, legalSizes(sizes))
		}
		size, err := ParseSize(value)
		if err != nil {
			return materializeError(err)
		}
		sizes, err := FamilySizes(model)
		if err != nil {
			return materializeError(err)
		}
		if !sizeAllowed(size, sizes) {
			return fmt.Sprintf("Size %s is not supported by model %s. Allowed sizes: %s", size, model, legalSizes(sizes))
		}
		prefs.Size = size.String()

	case "style":
		if !classAllowed(value) {
			return fmt.Sprintf("Unknown content class %q. Choose one of: %s", value, strings.Join(contentClasses, ", "))
		}
		prefs.ContentClass = value

	case "model":
		if _, err := FamilySizes(value); err != nil {
			return fmt.Sprintf("Unknown model %q. Choose one of: %s", value, strings.Join(Models(), ", "))
		}
		prefs.Model = value
		// Drop a stored size that belongs to the other family.
		if prefs.Size != "" {
			if size, err := ParseSize(prefs.Size); err == nil {
				if sizes, err := FamilySizes(value); err == nil && !sizeAllowed(size, sizes) {
					prefs.Size = ""
				}
			}
		}

	default:
		return "Unknown setting."
	}

	if err := c.prefs.SaveUserPreferences(prefs); err != nil {
		c.log.Error("saving preferences", sl.Err(err))
		return "Could not save your settings, please try again later."
	}
	return "Saved. Use /settings to review your generation settings."
}

// Settings returns the effective generation settings for the user.
func (c *Client) Settings(userId int64) string {
	cfg, err := c.resolveConfig(userId)
	if err != nil {
		return materializeError(err)
	}
	return fmt.Sprintf("Your generation settings:\nmodel: %s\nsize: %s\ncontent class: %s\nvariations: %d",
		cfg.Model, cfg.Size, cfg.ContentClass, cfg.NumVariations)
}

// History returns the user's recent generations as plain text.
func (c *Client) History(userId int64) string {
	records, err := c.store.RecentRecords(userId, historyLimit)
	if err != nil {
		c.log.Error("loading history", sl.Err(err))
		return "Could not load your history, please try again later."
	}
	if len(records) == 0 {
		return "No generations yet. Try /firefly a painting of a lighthouse at dawn"
	}

	var sb strings.Builder
	sb.WriteString("Your recent generations:\n")
	for i, record := range records {
		prompt := record.Prompt
		if len(prompt) > 60 {
			prompt = prompt[:60] + "..."
		}
		switch record.Status {
		case "succeeded":
			sb.WriteString(fmt.Sprintf("%d. %q - %d image(s)\n", i+1, prompt, len(record.ImageUrls)))
		default:
			sb.WriteString(fmt.Sprintf("%d. %q - failed\n", i+1, prompt))
		}
	}
	return sb.String()
}

// VerifyCredentials exercises one token exchange so operators see broken
// credentials at startup instead of on the first command.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Error("credential verification failed", sl.Err(err))
		return err
	}
	c.log.Info("credentials verified", sl.Secret(c.clientId))
	return nil
}

func (c *Client) Close() error {
	if c.prefs != nil {
		if err := c.prefs.Close(); err != nil {
			return err
		}
	}
	return c.store.Close()
}

func clampVariations(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxVariations {
		return maxVariations
	}
	return n
}
