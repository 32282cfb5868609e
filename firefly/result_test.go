package firefly

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaterialize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "![image](img://abc)\n", materialize([]string{"img://abc"}))
	assert.Equal(t,
		"![image](img://a)\n![image](img://b)\n",
		materialize([]string{"img://a", "img://b"}),
		"order must follow the provider")
	assert.Equal(t, "", materialize(nil))
}

func TestMaterializeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"config", newFault(ErrConfig, "size 1x1 is not supported"), "size 1x1 is not supported"},
		{"auth", newFault(ErrAuth, "submission rejected with status 401"), "credentials"},
		{"moderation", newFault(ErrModeration, "prompt contains disallowed text"), "prompt contains disallowed text"},
		{"generation", newFault(ErrGeneration, "render pipeline crashed"), "render pipeline crashed"},
		{"timeout", newFault(ErrTimeout, "job J1 was still running when patience ran out"), "took too long"},
		{"submission", newFault(ErrSubmission, "submission returned status 503"), "status 503"},
		{"poll", newFault(ErrPoll, "giving up after 3 transient errors"), "transient errors"},
		{"unknown", errors.New("surprise"), "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := materializeError(tt.err)
			assert.Contains(t, msg, tt.contains)
			assert.NotContains(t, msg, "tok-", "tokens must never leak into chat")
		})
	}

	t.Run("auth message does not echo provider detail", func(t *testing.T) {
		msg := materializeError(newFault(ErrAuth, "bearer tok-123 rejected"))
		assert.NotContains(t, msg, "tok-123")
	})
}
