package firefly

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenSource(url string) *tokenSource {
	s := newTokenSource("test-client-id", "test-client-secret", &http.Client{}, discardLogger())
	s.tokenUrl = url
	return s
}

func TestTokenSource(t *testing.T) {
	t.Parallel()

	t.Run("exchange sends client credentials form", func(t *testing.T) {
		var form map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			form = r.PostForm
			fmt.Fprint(w, `{"access_token":"tok-1","expires_in":86400}`)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)
		token, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)

		assert.Equal(t, []string{"client_credentials"}, form["grant_type"])
		assert.Equal(t, []string{"test-client-id"}, form["client_id"])
		assert.Equal(t, []string{"test-client-secret"}, form["client_secret"])
		assert.Equal(t, []string{imsScope}, form["scope"])
	})

	t.Run("cached token is reused within validity", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{"access_token":"tok-1","expires_in":86400}`)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)

		first, err := s.Token(context.Background())
		require.NoError(t, err)
		second, err := s.Token(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), calls.Load(), "second call must hit the cache")
	})

	t.Run("expired token triggers exactly one refresh", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":1000}`, n)
		}))
		defer srv.Close()

		now := time.Now()
		s := newTestTokenSource(srv.URL)
		s.now = func() time.Time { return now }

		first, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", first)

		// Inside the safety margin: 1000s validity minus the 5 minute margin.
		now = now.Add(800 * time.Second)

		second, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", second)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("concurrent expiry causes a single exchange", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			time.Sleep(30 * time.Millisecond)
			fmt.Fprint(w, `{"access_token":"tok-1","expires_in":86400}`)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := s.Token(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "tok-1", token)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load(), "refresh must be single flight")
	})

	t.Run("invalidate forces a refresh", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":86400}`, n)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)

		_, err := s.Token(context.Background())
		require.NoError(t, err)

		s.Invalidate()

		token, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", token)
	})

	t.Run("rejected exchange is an auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)
		_, err := s.Token(context.Background())
		require.ErrorIs(t, err, ErrAuth)
		assert.NotContains(t, err.Error(), "test-client-secret")
	})

	t.Run("malformed payload is an auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json at all`)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)
		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("missing access token is an auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"expires_in":86400}`)
		}))
		defer srv.Close()

		s := newTestTokenSource(srv.URL)
		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, ErrAuth)
	})
}
