package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"Flicker/lib/sl"
)

// submit sends the generation request to the asynchronous endpoint and
// returns the job handle. No partial job state survives a failure: either the
// provider accepted the job and we have a handle, or we have nothing.
func (c *Client) submit(ctx context.Context, token string, request *GenerateRequest, model string) (JobHandle, error) {
	jsonBytes, err := json.Marshal(request)
	if err != nil {
		return JobHandle{}, newFault(ErrSubmission, "marshalling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateUrl, bytes.NewReader(jsonBytes))
	if err != nil {
		return JobHandle{}, newFault(ErrSubmission, "making request: %v", err)
	}
	req.Header.Set("x-api-key", c.clientId)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-model-version", model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JobHandle{}, newFault(ErrSubmission, "sending request: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error("closing submit response body", sl.Err(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return JobHandle{}, newFault(ErrSubmission, "reading response: %v", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var submitResp submitResponse
		if err := json.Unmarshal(body, &submitResp); err != nil {
			return JobHandle{}, newFault(ErrSubmission, "decoding response: %v", err)
		}
		if submitResp.JobId == "" || submitResp.StatusUrl == "" {
			return JobHandle{}, newFault(ErrSubmission, "response missing job id or status location")
		}
		c.log.With(
			sl.JobID(submitResp.JobId),
			slog.String("model", model),
		).Info("generation job accepted")
		return JobHandle{JobId: submitResp.JobId, StatusUrl: submitResp.StatusUrl}, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return JobHandle{}, newFault(ErrAuth, "submission rejected with status %d", resp.StatusCode)

	case resp.StatusCode == http.StatusUnprocessableEntity:
		// Content moderation block. Not retryable; the provider message is
		// shown to the user verbatim.
		return JobHandle{}, newFault(ErrModeration, "%s", errorDetail(body))

	case resp.StatusCode == http.StatusBadRequest:
		c.log.With(slog.String("body", string(body))).Error("malformed generation request")
		return JobHandle{}, newFault(ErrSubmission, "request was malformed: %s", errorDetail(body))

	default:
		return JobHandle{}, newFault(ErrSubmission, "submission returned status %d: %s",
			resp.StatusCode, errorDetail(body))
	}
}
