package firefly

import "strings"

const commandPrefix = "/firefly"

// ParseCommand reports whether text is a /firefly command and extracts the
// prompt. The prompt is the trimmed remainder of the message; a matched
// command with an empty prompt yields ok with an empty prompt, which callers
// answer with UsageMessage before touching the network.
func ParseCommand(text string) (prompt string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(strings.ToLower(trimmed), commandPrefix) {
		return "", false
	}
	rest := trimmed[len(commandPrefix):]
	// Require a separator so "/fireflyfoo" is not treated as a command.
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
