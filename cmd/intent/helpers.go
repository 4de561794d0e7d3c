package main

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/shahar-caura/supportintent/internal/config"
	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/shahar-caura/supportintent/internal/logging"
	"github.com/shahar-caura/supportintent/internal/metrics"
	"github.com/shahar-caura/supportintent/internal/provider"
	"github.com/shahar-caura/supportintent/internal/provider/llm"
	"github.com/shahar-caura/supportintent/internal/provider/notifier"
	"github.com/shahar-caura/supportintent/internal/taxonomy"
	"github.com/spf13/cobra"
)

// cli carries global flag values shared by subcommands.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string

	// newGenerator is overridable for testing.
	newGenerator func(cfg *config.Config, logger *slog.Logger) (provider.Generator, error)
}

func newCLI() *cli {
	return &cli{newGenerator: wireGenerator}
}

// setup loads the configuration and builds the logger. Log flags override
// the configured values.
func (c *cli) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	return cfg, logger, nil
}

// classifier wires a Classifier from cfg. m may be nil.
func (c *cli) classifier(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*intent.Classifier, error) {
	gen, err := c.newGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}

	tax, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	opts := classifierOptions(cfg)
	opts.Metrics = m
	return intent.New(gen, tax, opts, logger)
}

func classifierOptions(cfg *config.Config) intent.Options {
	return intent.Options{
		MaxRetries:      cfg.Classifier.MaxRetries,
		FallbackEnabled: cfg.Classifier.FallbackEnabled,
		MaxTokens:       cfg.Provider.MaxTokens,
		Temperature:     cfg.Provider.Temperature,
		Backoff: intent.Backoff{
			Initial:    cfg.Classifier.Backoff.Initial,
			Max:        cfg.Classifier.Backoff.Max,
			Multiplier: cfg.Classifier.Backoff.Multiplier,
		},
		MaxWorkers: cfg.Batch.MaxWorkers,
		Provider:   cfg.Provider.Name,
	}
}

// --- Provider wiring ---

// lookPath is overridable for testing.
var lookPath = exec.LookPath

// wireAlert returns nil when no notifier is configured.
func wireAlert(cfg *config.Config, source string, logger *slog.Logger) *notifier.DegradationAlert {
	if cfg.Notifier.Provider == "" {
		return nil
	}
	slack := notifier.NewSlack(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout)
	return notifier.NewDegradationAlert(slack, cfg.Notifier.FallbackThreshold, source, logger)
}

func wireGenerator(cfg *config.Config, logger *slog.Logger) (provider.Generator, error) {
	p := cfg.Provider
	switch p.Name {
	case config.ProviderAnthropic:
		g, err := llm.NewAnthropic(p.APIKey, p.Model, p.BaseURL, p.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
		}
		return g, nil
	case config.ProviderGemini:
		g, err := llm.NewGemini(p.APIKey, p.Model, p.BaseURL, p.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
		}
		return g, nil
	case config.ProviderClaudeCLI:
		if _, err := lookPath("claude"); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfig, llm.ErrNoClaude)
		}
		return llm.NewClaudeCLI(p.Model, p.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrConfig, p.Name)
	}
}
