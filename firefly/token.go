package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"Flicker/lib/sl"
)

// Refresh the token this long before it actually expires.
const tokenMargin = 5 * time.Minute

// tokenSource caches the IMS access token for the process and refreshes it
// through a single flight, so concurrent invocations hitting an expired token
// trigger exactly one exchange call. Readers of a still-valid token only take
// the read lock and never wait on a refresh.
type tokenSource struct {
	log          *slog.Logger
	httpClient   *http.Client
	tokenUrl     string
	clientId     string
	clientSecret string
	now          func() time.Time

	mu      sync.RWMutex
	token   string
	expires time.Time

	group singleflight.Group
}

func newTokenSource(clientId, clientSecret string, httpClient *http.Client, log *slog.Logger) *tokenSource {
	return &tokenSource{
		log:          log.With(sl.Module("ims-token")),
		httpClient:   httpClient,
		tokenUrl:     defaultTokenUrl,
		clientId:     clientId,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// Token returns the cached access token while it is still comfortably inside
// its validity window, refreshing it otherwise.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	value, err, _ := s.group.Do("ims", func() (any, error) {
		// Another caller may have refreshed while we queued.
		if token, ok := s.cached(); ok {
			return token, nil
		}
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Invalidate drops the cached token. Called when the provider rejects a token
// that has not expired by our clock.
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

func (s *tokenSource) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token != "" && s.now().Before(s.expires.Add(-tokenMargin)) {
		return s.token, true
	}
	return "", false
}

func (s *tokenSource) refresh(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientId},
		"client_secret": {s.clientSecret},
		"scope":         {imsScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("making token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", newFault(ErrAuth, "token exchange call failed: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.log.Error("closing token response body", sl.Err(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newFault(ErrAuth, "reading token response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.With(
			slog.Int("status", resp.StatusCode),
			sl.Secret(s.clientId),
		).Error("token exchange rejected")
		return "", newFault(ErrAuth, "token exchange returned status %d", resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", newFault(ErrAuth, "decoding token response: %v", err)
	}
	if tokenResp.AccessToken == "" {
		return "", newFault(ErrAuth, "token response missing access token")
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 86400
	}
	expires := s.now().Add(time.Duration(expiresIn) * time.Second)

	s.mu.Lock()
	s.token = tokenResp.AccessToken
	s.expires = expires
	s.mu.Unlock()

	s.log.With(
		sl.Secret(s.clientId),
		slog.Time("expires", expires),
	).Info("access token refreshed")

	return tokenResp.AccessToken, nil
}
