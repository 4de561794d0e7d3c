package intent

import (
	"errors"
	"fmt"
)

// Request is one message to classify together with its conversation so far.
type Request struct {
	Message string `json:"message" yaml:"message"`
	History string `json:"history,omitempty" yaml:"history,omitempty"`
}

// Source records where a Result came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Result holds the classified intent of a message.
type Result struct {
	Primary    string   `json:"primary"`
	Secondary  string   `json:"secondary"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Source     Source   `json:"source"`
	Attempts   int      `json:"attempts"`
}

var (
	// ErrTransport indicates the remote model call failed.
	ErrTransport = errors.New("transport error")

	// ErrParse indicates the model replied with unusable output.
	ErrParse = errors.New("parse error")

	// ErrUnknown indicates any other failure during an attempt.
	ErrUnknown = errors.New("unknown error")

	// ErrCanceled indicates the caller's context was canceled or timed out.
	ErrCanceled = errors.New("classification canceled")

	// ErrInvalidRequest indicates a request that cannot be classified.
	ErrInvalidRequest = errors.New("invalid request")
)

// ClassifyError is returned when classification gives up without a result.
// It matches both its Kind sentinel and the underlying cause with errors.Is.
type ClassifyError struct {
	Kind     error
	Attempts int
	Err      error
}

func (e *ClassifyError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s after %d attempt(s)", e.Kind, e.Attempts)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s (after %d attempt(s))", e.Err, e.Attempts)
	default:
		return fmt.Sprintf("%s after %d attempt(s): %s", e.Kind, e.Attempts, e.Err)
	}
}

func (e *ClassifyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// kindName returns a short label for a kind sentinel, used in logs and metrics.
func kindName(kind error) string {
	switch {
	case kind == nil:
		return "success"
	case errors.Is(kind, ErrTransport):
		return "transport"
	case errors.Is(kind, ErrParse):
		return "parse"
	case errors.Is(kind, ErrCanceled):
		return "canceled"
	default:
		return "unknown"
	}
}
