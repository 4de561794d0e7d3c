package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchOptions controls ClassifyBatch scheduling.
type BatchOptions struct {
	Parallel bool

	// MaxWorkers caps concurrent classifications; <= 0 uses the
	// Classifier's configured default.
	MaxWorkers int
}

// ClassifyBatch classifies reqs with fallback enabled. The returned slice
// always has len(reqs) entries and out[i] belongs to reqs[i], whatever the
// completion order. A failure or panic for one item degrades only that item
// to a rule-based result.
//
// If ctx is canceled, items not yet finished are left zero-valued and the
// returned error matches ErrCanceled.
func (c *Classifier) ClassifyBatch(ctx context.Context, reqs []Request, opts BatchOptions) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = c.opts.MaxWorkers
	}

	logger := c.logger.With("batch_id", uuid.NewString())
	logger.Info("classifying batch", "items", len(reqs), "parallel", opts.Parallel, "workers", workers)
	c.metrics.ObserveBatch(len(reqs))

	if !opts.Parallel || len(reqs) == 1 {
		for i, req := range reqs {
			if ctx.Err() != nil {
				break
			}
			results[i] = c.classifyItem(ctx, i, req, logger)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i, req := range reqs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results[i] = c.classifyItem(ctx, i, req, logger)
				return nil
			})
		}
		_ = g.Wait()
	}

	unfinished, fallbacks := 0, 0
	for _, r := range results {
		switch r.Source {
		case "":
			unfinished++
		case SourceFallback:
			fallbacks++
		}
	}

	if unfinished > 0 {
		logger.Warn("batch canceled", "items", len(reqs), "unfinished", unfinished)
		return results, fmt.Errorf("%w: %d of %d items unfinished: %w", ErrCanceled, unfinished, len(reqs), context.Cause(ctx))
	}

	logger.Info("batch complete", "items", len(reqs), "fallbacks", fallbacks)
	return results, nil
}

// classifyItem runs one batch item. Errors and panics become a fallback
// result for this item only; cancellation leaves the slot empty.
func (c *Classifier) classifyItem(ctx context.Context, index int, req Request, logger *slog.Logger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", ErrUnknown, r)
			logger.Error("classification panicked", "index", index, "error", err)
			c.metrics.ObserveFallback(kindName(ErrUnknown))
			res = c.resolver.Resolve(req, err)
		}
	}()

	out, err := c.ClassifyWith(ctx, req, c.opts.MaxRetries, true)
	if err == nil {
		return out
	}
	if errors.Is(err, ErrCanceled) {
		return Result{}
	}

	logger.Error("error classifying message", "index", index, "message", truncate(req.Message, 50), "error", err)
	c.metrics.ObserveFallback(kindName(err))
	return c.resolver.Resolve(req, err)
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
