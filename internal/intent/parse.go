package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const fence = "```"

type payload struct {
	Primary    *string  `json:"primary"`
	Secondary  *string  `json:"secondary"`
	Reasoning  string   `json:"reasoning"`
	Confidence *float64 `json:"confidence"`
}

// Parse extracts a Result from raw model output. A ```json fenced block is
// preferred, then the first fenced block of any kind, then the whole text.
// Errors wrap ErrParse.
func Parse(raw string) (Result, error) {
	text := extractJSON(raw)

	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Result{}, fmt.Errorf("%w: invalid JSON: %s", ErrParse, err)
	}

	if p.Primary == nil || strings.TrimSpace(*p.Primary) == "" {
		return Result{}, fmt.Errorf("%w: missing required field \"primary\"", ErrParse)
	}
	if p.Secondary == nil || strings.TrimSpace(*p.Secondary) == "" {
		return Result{}, fmt.Errorf("%w: missing required field \"secondary\"", ErrParse)
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
		return Result{}, fmt.Errorf("%w: confidence %.2f outside [0,1]", ErrParse, *p.Confidence)
	}

	return Result{
		Primary:    strings.TrimSpace(*p.Primary),
		Secondary:  strings.TrimSpace(*p.Secondary),
		Confidence: p.Confidence,
		Reasoning:  p.Reasoning,
		Source:     SourceRemote,
	}, nil
}

// extractJSON returns the text to decode from a model reply.
func extractJSON(s string) string {
	if _, after, ok := strings.Cut(s, fence+"json"); ok {
		body, _, _ := strings.Cut(after, fence)
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(s, fence); ok {
		body, _, _ := strings.Cut(after, fence)
		return strings.TrimSpace(dropInfoString(body))
	}
	return strings.TrimSpace(s)
}

// dropInfoString removes a language tag (e.g. "JSON", "javascript") that
// follows an opening fence on the same line.
func dropInfoString(body string) string {
	first, rest, ok := strings.Cut(body, "\n")
	if !ok {
		return body
	}
	tag := strings.TrimSpace(first)
	if tag == "" || strings.ContainsAny(tag, "{[\" ") {
		return body
	}
	return rest
}
