package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shahar-caura/supportintent/internal/config"
	"github.com/shahar-caura/supportintent/internal/metrics"
	"github.com/shahar-caura/supportintent/internal/provider"
	"github.com/shahar-caura/supportintent/internal/taxonomy"
)

const (
	DefaultMaxRetries  = 2
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.1
	DefaultMaxWorkers  = 4
)

// Options configures a Classifier.
type Options struct {
	MaxRetries      int
	FallbackEnabled bool
	MaxTokens       int
	Temperature     float64
	Backoff         Backoff

	// MaxWorkers is the default concurrency cap for ClassifyBatch.
	MaxWorkers int

	// Provider labels attempt metrics.
	Provider string
	Metrics  *metrics.Metrics
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxRetries:      DefaultMaxRetries,
		FallbackEnabled: true,
		MaxTokens:       DefaultMaxTokens,
		Temperature:     DefaultTemperature,
		MaxWorkers:      DefaultMaxWorkers,
	}
}

// Classifier assigns primary/secondary intents to support messages using a
// remote model, retrying transient failures and degrading to keyword rules.
// It is safe for concurrent use when its Generator is.
type Classifier struct {
	gen      provider.Generator
	tax      *taxonomy.Taxonomy
	resolver *Resolver
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Classifier. Invalid arguments are reported as config.ErrConfig.
func New(gen provider.Generator, tax *taxonomy.Taxonomy, opts Options, logger *slog.Logger) (*Classifier, error) {
	var errs []error
	if gen == nil {
		errs = append(errs, errors.New("generator is required"))
	}
	if tax == nil {
		errs = append(errs, errors.New("taxonomy is required"))
	}
	if opts.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must be >= 0, got %d", opts.MaxRetries))
	}
	if opts.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens must be >= 0, got %d", opts.MaxTokens))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Classifier{
		gen:      gen,
		tax:      tax,
		resolver: NewResolver(tax.Fallback, tax.Default),
		opts:     opts,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// Resolver returns the rule-based resolver used for degraded results.
func (c *Classifier) Resolver() *Resolver { return c.resolver }

// Classify classifies req with the configured retry and fallback policy.
func (c *Classifier) Classify(ctx context.Context, req Request) (Result, error) {
	return c.ClassifyWith(ctx, req, c.opts.MaxRetries, c.opts.FallbackEnabled)
}

// ClassifyWith classifies req making at most maxRetries+1 remote attempts.
//
// With fallbackEnabled, exhausting the attempts yields a rule-based Result and
// a nil error. Without it, a *ClassifyError matching ErrTransport, ErrParse or
// ErrUnknown is returned. Cancellation of ctx always returns an error matching
// ErrCanceled and never falls back.
func (c *Classifier) ClassifyWith(ctx context.Context, req Request, maxRetries int, fallbackEnabled bool) (Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Result{}, fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	maxAttempts := maxRetries + 1

	start := time.Now()
	prompt := c.tax.BuildPrompt(req.History, req.Message)

	last, attempts := runAttempts(ctx, maxAttempts, c.opts.Backoff,
		func(ctx context.Context, _ int) outcome {
			o := c.attempt(ctx, prompt)
			c.metrics.ObserveAttempt(c.opts.Provider, kindName(o.kind))
			return o
		},
		func(attempt int, o outcome) {
			c.logger.Warn("classification attempt failed",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"kind", kindName(o.kind),
				"error", o.err,
			)
		},
	)

	if last.kind == nil {
		res := last.result
		res.Attempts = attempts
		c.metrics.ObserveClassify(string(SourceRemote), time.Since(start))
		return res, nil
	}

	cerr := &ClassifyError{Kind: last.kind, Attempts: attempts, Err: last.err}
	if errors.Is(last.kind, ErrCanceled) || !fallbackEnabled {
		return Result{}, cerr
	}

	c.logger.Error("returning fallback result after failure", "attempts", attempts, "kind", kindName(last.kind), "error", last.err)
	c.metrics.ObserveFallback(kindName(last.kind))
	res := c.resolver.Resolve(req, cerr)
	res.Attempts = attempts
	c.metrics.ObserveClassify(string(SourceFallback), time.Since(start))
	return res, nil
}

// attempt performs one remote call plus parsing and validation.
func (c *Classifier) attempt(ctx context.Context, prompt string) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome{kind: ErrUnknown, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	raw, err := c.gen.Generate(ctx, prompt, c.opts.MaxTokens, c.opts.Temperature)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome{kind: ErrCanceled, err: ctxErr}
		}
		return outcome{kind: ErrTransport, err: err}
	}

	res, err := Parse(raw)
	if err != nil {
		return outcome{kind: ErrParse, err: err}
	}
	if !c.tax.Valid(res.Primary, res.Secondary) {
		return outcome{kind: ErrParse, err: fmt.Errorf("%w: %q is not a secondary intent of %q", ErrParse, res.Secondary, res.Primary)}
	}
	return outcome{result: res}
}
