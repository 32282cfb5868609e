package firefly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		prompt string
		ok     bool
	}{
		{"plain command", "/firefly a dog and pony show", "a dog and pony show", true},
		{"uppercase command", "/Firefly sunset over mountains", "sunset over mountains", true},
		{"surrounding whitespace", "  /firefly  a cat  ", "a cat", true},
		{"no prompt", "/firefly", "", true},
		{"whitespace only prompt", "/firefly   ", "", true},
		{"tab separated", "/firefly\tneon city", "neon city", true},
		{"not a command", "draw me a firefly", "", false},
		{"joined word", "/fireflying away", "", false},
		{"different command", "/help", "", false},
		{"empty message", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.prompt, prompt)
		})
	}
}
