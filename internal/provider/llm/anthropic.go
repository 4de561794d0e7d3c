package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic implements provider.Generator using the Anthropic Messages API.
// The SDK's own retries are disabled; the classifier owns the retry policy.
type Anthropic struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropic creates an Anthropic generator. An empty model selects
// DefaultAnthropicModel; an empty baseURL uses the public endpoint.
func NewAnthropic(apiKey, model, baseURL string, timeout time.Duration, logger *slog.Logger) (*Anthropic, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Model returns the configured model identifier.
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	start := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			a.logger.Debug("anthropic response",
				"model", a.model,
				"size", len(block.Text),
				"tokens_in", message.Usage.InputTokens,
				"tokens_out", message.Usage.OutputTokens,
				"latency", time.Since(start),
			)
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: no text content in response")
}
