package provider

import "context"

// Generator sends a prompt to a language model and returns its raw text reply.
// Implementations must be safe for concurrent use by multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
