package firefly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"Flicker/lib/sl"
)

const (
	// How many consecutive transport failures are tolerated before the
	// invocation gives up on the job.
	maxTransientRetries = 3

	maxPollInterval = 15 * time.Second
)

// pollUntilDone drives the job status loop: pending and running feed back
// into the loop, succeeded returns the ordered image references, failed
// returns the provider's diagnostic. The wait between polls starts at the
// configured base interval and grows up to a cap. Transient transport errors
// are retried with exponential backoff within a fixed budget; the wall-clock
// deadline is measured from submission and bounds everything.
func (c *Client) pollUntilDone(ctx context.Context, token string, handle JobHandle, deadline time.Time) ([]string, error) {
	log := c.log.With(sl.JobID(handle.JobId))

	interval := c.pollInterval
	transient := 0
	lastStatus := statusPending

	for {
		status, err := c.fetchStatus(ctx, token, handle)

		var wait time.Duration
		switch {
		case err == nil:
			transient = 0
			lastStatus = status.Status

			switch status.Status {
			case statusSucceeded:
				refs := status.imageRefs()
				if len(refs) == 0 {
					return nil, newFault(ErrPoll, "job %s succeeded but returned no image references", handle.JobId)
				}
				log.With(slog.Int("images", len(refs))).Info("job succeeded")
				return refs, nil

			case statusFailed:
				detail := "provider reported failure"
				if status.Error != nil && status.Error.Message != "" {
					detail = status.Error.Message
				}
				log.With(slog.String("detail", detail)).Warn("job failed")
				return nil, newFault(ErrGeneration, "%s", detail)

			default:
				// pending, running, or a status this client does not know
				// yet: stay in the loop until the deadline.
			}

			wait = interval
			interval = growInterval(interval)

		default:
			var fault *Fault
			if errors.As(err, &fault) {
				// Auth rejection or a non-retryable status endpoint error.
				return nil, err
			}

			transient++
			if transient > maxTransientRetries {
				return nil, newFault(ErrPoll, "job %s: giving up after %d transient errors, last: %v",
					handle.JobId, maxTransientRetries, err)
			}
			wait = backoffDelay(c.pollInterval, transient)
			log.With(
				slog.Int("attempt", transient),
				slog.Duration("delay", wait),
				sl.Err(err),
			).Warn("transient poll error, retrying")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.With(slog.String("status", lastStatus)).Warn("poll deadline exceeded")
			return nil, newFault(ErrTimeout, "job %s was still %s when patience ran out", handle.JobId, lastStatus)
		}
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling stopped: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// fetchStatus queries the job status endpoint once. Faults (auth rejection,
// unexpected client errors) are terminal for the loop; plain errors are
// transient and eligible for retry.
func (c *Client) fetchStatus(ctx context.Context, token string, handle JobHandle) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.StatusUrl, nil)
	if err != nil {
		return nil, newFault(ErrPoll, "making status request: %v", err)
	}
	req.Header.Set("x-api-key", c.clientId)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching status: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error("closing status response body", sl.Err(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading status response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var status statusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("decoding status response: %w", err)
		}
		if status.Status == "" {
			return nil, fmt.Errorf("status response missing status field")
		}
		return &status, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, newFault(ErrAuth, "status poll rejected with status %d", resp.StatusCode)

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)

	default:
		return nil, newFault(ErrPoll, "status endpoint returned %d: %s", resp.StatusCode, errorDetail(body))
	}
}

func growInterval(interval time.Duration) time.Duration {
	interval = interval * 3 / 2
	if interval > maxPollInterval {
		interval = maxPollInterval
	}
	return interval
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxPollInterval {
			return maxPollInterval
		}
	}
	return delay
}
