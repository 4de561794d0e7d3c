package intent

import (
	"context"
	"errors"
	"math"
	"time"
)

// Backoff configures the delay between attempts. The zero value retries
// immediately.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Initial <= 0 || attempt < 1 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// outcome is the tagged result of a single attempt. kind is nil on success,
// otherwise one of the Err* sentinels.
type outcome struct {
	result Result
	kind   error
	err    error
}

func (o outcome) retryable() bool {
	return o.kind != nil && !errors.Is(o.kind, ErrCanceled)
}

// runAttempts calls fn until it succeeds, returns a non-retryable outcome, or
// maxAttempts is reached. onFailure, when set, is called for every failed
// attempt. It returns the last outcome and the number of attempts made.
func runAttempts(
	ctx context.Context,
	maxAttempts int,
	backoff Backoff,
	fn func(ctx context.Context, attempt int) outcome,
	onFailure func(attempt int, o outcome),
) (outcome, int) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return outcome{kind: ErrCanceled, err: err}, attempt - 1
		}

		last = fn(ctx, attempt)
		if last.kind == nil {
			return last, attempt
		}
		if onFailure != nil {
			onFailure(attempt, last)
		}
		if !last.retryable() || attempt == maxAttempts {
			return last, attempt
		}

		if d := backoff.Delay(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return outcome{kind: ErrCanceled, err: ctx.Err()}, attempt
			case <-timer.C:
			}
		}
	}
	return last, maxAttempts
}
