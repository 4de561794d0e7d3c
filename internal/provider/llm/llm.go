// Package llm contains provider.Generator implementations backed by hosted
// language models.
package llm

import (
	"errors"
	"unicode/utf8"
)

// ErrMissingAPIKey is returned by constructors that need a credential.
var ErrMissingAPIKey = errors.New("api key is required")

const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultGeminiModel    = "gemini-2.5-flash"
)

// truncate shortens s for inclusion in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
