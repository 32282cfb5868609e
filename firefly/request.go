package firefly

import (
	"encoding/json"
	"strings"
)

const (
	defaultTokenUrl    = "https://ims-na1.adobelogin.com/ims/token/v3"
	defaultGenerateUrl = "https://firefly-api.adobe.io/v3/images/generate-async"

	imsScope = "openid,AdobeID,session,additional_info,read_organizations,firefly_api,ff_apis"
)

const (
	statusPending   = "pending"
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// JobHandle identifies an accepted asynchronous generation job. It lives for
// one invocation and is discarded after the job reaches a terminal state.
type JobHandle struct {
	JobId     string
	StatusUrl string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// GenerateRequest is the payload of the asynchronous generation endpoint.
type GenerateRequest struct {
	Prompt        string `json:"prompt"`
	NumVariations int    `json:"numVariations,omitempty"`
	Size          Size   `json:"size"`
	ContentClass  string `json:"contentClass"`
}

// NewGenerateRequest builds the submission payload from a prompt and a
// resolved configuration.
func NewGenerateRequest(prompt string, cfg GenerationConfig) *GenerateRequest {
	return &GenerateRequest{
		Prompt:        prompt,
		NumVariations: cfg.NumVariations,
		Size:          cfg.Size,
		ContentClass:  cfg.ContentClass,
	}
}

type submitResponse struct {
	JobId     string `json:"jobId"`
	StatusUrl string `json:"statusUrl"`
}

type statusResponse struct {
	JobId  string `json:"jobId"`
	Status string `json:"status"`
	Result *struct {
		Outputs []outputPayload `json:"outputs"`
	} `json:"result"`
	Error *errorPayload `json:"error"`
}

type outputPayload struct {
	Seed  int64 `json:"seed"`
	Image struct {
		Url string `json:"url"`
	} `json:"image"`
}

type errorPayload struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// imageRefs collects output image locations in provider order, skipping
// entries with no location.
func (s *statusResponse) imageRefs() []string {
	if s.Result == nil {
		return nil
	}
	refs := make([]string, 0, len(s.Result.Outputs))
	for _, out := range s.Result.Outputs {
		if out.Image.Url != "" {
			refs = append(refs, out.Image.Url)
		}
	}
	return refs
}

// errorDetail extracts a provider error message from a response body. The
// provider has used both a single error object and an errors array; unknown
// shapes degrade to the raw body trimmed to a sane length.
func errorDetail(body []byte) string {
	var payload struct {
		ErrorCode string         `json:"error_code"`
		Message   string         `json:"message"`
		Error     *errorPayload  `json:"error"`
		Errors    []errorPayload `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != nil && payload.Error.Message != "" {
			return payload.Error.Message
		}
		if len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
			return payload.Errors[0].Message
		}
		if payload.ErrorCode != "" {
			return payload.ErrorCode
		}
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	return detail
}
