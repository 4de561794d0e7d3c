package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shahar-caura/supportintent/internal/config"
	"github.com/shahar-caura/supportintent/internal/metrics"
	"github.com/shahar-caura/supportintent/internal/provider"
	"github.com/shahar-caura/supportintent/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGen counts calls and delegates to fn.
type fakeGen struct {
	calls atomic.Int64
	fn    func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeGen) Generate(ctx context.Context, prompt string, _ int, _ float64) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx, prompt)
}

func (f *fakeGen) Calls() int { return int(f.calls.Load()) }

func reply(primary, secondary, reasoning string) string {
	return fmt.Sprintf("```json\n{\"primary\":%q,\"secondary\":%q,\"reasoning\":%q}\n```", primary, secondary, reasoning)
}

// messageOf extracts the current customer message from a built prompt.
func messageOf(prompt string) string {
	_, after, _ := strings.Cut(prompt, "**CURRENT CUSTOMER MESSAGE:**\n")
	msg, _, _ := strings.Cut(after, "\n\nClassify this message")
	return msg
}

func newTestClassifier(t *testing.T, gen provider.Generator, mutate func(*Options)) *Classifier {
	t.Helper()
	tax, err := taxonomy.Default()
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Provider = "fake"
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(gen, tax, opts, nil)
	require.NoError(t, err)
	return c
}

func TestClassify_GreetingWithQuestion(t *testing.T) {
	gen := &fakeGen{fn: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(strings.ToLower(messageOf(prompt)), "where is my order") {
			return reply("Logistics", "order_status", "Customer asking about order location despite greeting"), nil
		}
		return reply("Basic Interactions", "greetings", "hello"), nil
	}}
	c := newTestClassifier(t, gen, nil)

	res, err := c.Classify(context.Background(), Request{Message: "Hi, where is my order?"})
	require.NoError(t, err)
	assert.Equal(t, "Logistics", res.Primary)
	assert.Equal(t, "order_status", res.Secondary)
	assert.NotEqual(t, "Basic Interactions", res.Primary)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, 1, res.Attempts)
}

func TestClassify_EmptyHistoryMarker(t *testing.T) {
	var seen string
	gen := &fakeGen{fn: func(_ context.Context, prompt string) (string, error) {
		seen = prompt
		return reply("Basic Interactions", "greetings", ""), nil
	}}
	c := newTestClassifier(t, gen, nil)

	_, err := c.Classify(context.Background(), Request{Message: "Hi"})
	require.NoError(t, err)
	assert.Contains(t, seen, taxonomy.NoHistory)
	assert.Contains(t, seen, "Hi")
}

func TestClassify_TransportFailureFallsBack(t *testing.T) {
	for _, retries := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			gen := &fakeGen{fn: func(context.Context, string) (string, error) {
				return "", errors.New("connection reset by peer")
			}}
			c := newTestClassifier(t, gen, nil)

			res, err := c.ClassifyWith(context.Background(), Request{Message: "where is my order"}, retries, true)
			require.NoError(t, err)
			assert.Equal(t, retries+1, gen.Calls())
			assert.Equal(t, retries+1, res.Attempts)
			assert.Equal(t, SourceFallback, res.Source)
			assert.Equal(t, "Logistics", res.Primary)
			assert.Equal(t, "order_status", res.Secondary)
			assert.Contains(t, res.Reasoning, "connection reset by peer")
		})
	}
}

func TestClassify_NoFallbackSurfacesKind(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) (string, error)
		kind error
	}{
		{"transport", func(context.Context, string) (string, error) { return "", errors.New("503") }, ErrTransport},
		{"parse", func(context.Context, string) (string, error) { return "not json", nil }, ErrParse},
		{"unknown", func(context.Context, string) (string, error) { panic("boom") }, ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGen{fn: tt.fn}
			c := newTestClassifier(t, gen, nil)

			_, err := c.ClassifyWith(context.Background(), Request{Message: "hello"}, 2, false)
			require.Error(t, err)
			assert.Equal(t, 3, gen.Calls())
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var cerr *ClassifyError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, 3, cerr.Attempts)
		})
	}
}

func TestClassify_ReportsLastKind(t *testing.T) {
	gen := &fakeGen{}
	gen.fn = func(context.Context, string) (string, error) {
		if gen.Calls() == 1 {
			return "", errors.New("timeout")
		}
		return `{"primary":"Logistics"}`, nil
	}
	c := newTestClassifier(t, gen, nil)

	_, err := c.ClassifyWith(context.Background(), Request{Message: "x"}, 1, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestClassify_RetryThenSuccess(t *testing.T) {
	gen := &fakeGen{}
	gen.fn = func(context.Context, string) (string, error) {
		if gen.Calls() < 3 {
			return "garbage", nil
		}
		return reply("About Product", "pricing", "asks price"), nil
	}
	c := newTestClassifier(t, gen, nil)

	res, err := c.Classify(context.Background(), Request{Message: "how much?"})
	require.NoError(t, err)
	assert.Equal(t, "pricing", res.Secondary)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, 3, res.Attempts)
}

func TestClassify_TaxonomyViolationIsParseError(t *testing.T) {
	gen := &fakeGen{fn: func(context.Context, string) (string, error) {
		return reply("Logistics", "greetings", "mixed"), nil
	}}
	c := newTestClassifier(t, gen, nil)

	_, err := c.ClassifyWith(context.Background(), Request{Message: "hi"}, 0, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), `"greetings" is not a secondary intent of "Logistics"`)
}

func TestClassify_CancellationBypassesFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGen{fn: func(ctx context.Context, _ string) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := newTestClassifier(t, gen, nil)

	res, err := c.ClassifyWith(ctx, Request{Message: "where is my order"}, 3, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, Result{}, res)
	assert.Equal(t, 1, gen.Calls())
}

func TestClassify_DeadlineBypassesFallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	gen := &fakeGen{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("http: %w", ctx.Err())
	}}
	c := newTestClassifier(t, gen, nil)

	_, err := c.Classify(ctx, Request{Message: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClassify_EmptyMessage(t *testing.T) {
	gen := &fakeGen{fn: func(context.Context, string) (string, error) { return "", nil }}
	c := newTestClassifier(t, gen, nil)

	_, err := c.Classify(context.Background(), Request{Message: "  ", History: "something"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, 0, gen.Calls())
}

func TestClassify_UsesDefaultOptions(t *testing.T) {
	gen := &fakeGen{fn: func(context.Context, string) (string, error) { return "", errors.New("down") }}
	c := newTestClassifier(t, gen, nil)

	res, err := c.Classify(context.Background(), Request{Message: "Xxxxxxxxxx"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRetries+1, gen.Calls())
	assert.Equal(t, "Special Categories", res.Primary)
	assert.Equal(t, "out_of_scope", res.Secondary)
	assert.Contains(t, res.Reasoning, "fallback classification used due to error")
}

func TestClassify_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	gen := &fakeGen{}
	gen.fn = func(context.Context, string) (string, error) {
		if gen.Calls() == 1 {
			return "", errors.New("flaky")
		}
		return reply("Logistics", "order_status", ""), nil
	}
	c := newTestClassifier(t, gen, func(o *Options) { o.Metrics = m })

	_, err := c.Classify(context.Background(), Request{Message: "track"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("fake", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("fake", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("transport")))
}

func TestNew_Validation(t *testing.T) {
	tax, err := taxonomy.Default()
	require.NoError(t, err)
	gen := &fakeGen{}

	_, err = New(nil, tax, DefaultOptions(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfig))
	assert.Contains(t, err.Error(), "generator is required")

	_, err = New(gen, nil, DefaultOptions(), nil)
	assert.True(t, errors.Is(err, config.ErrConfig))

	opts := DefaultOptions()
	opts.MaxRetries = -1
	_, err = New(gen, tax, opts, nil)
	assert.True(t, errors.Is(err, config.ErrConfig))
	assert.Contains(t, err.Error(), "max retries")
}

func TestClassifyError_Message(t *testing.T) {
	e := &ClassifyError{Kind: ErrTransport, Attempts: 3, Err: errors.New("dial tcp")}
	assert.Equal(t, "transport error after 3 attempt(s): dial tcp", e.Error())

	wrapped := &ClassifyError{Kind: ErrParse, Attempts: 1, Err: fmt.Errorf("%w: bad", ErrParse)}
	assert.Equal(t, "parse error: bad (after 1 attempt(s))", wrapped.Error())

	bare := &ClassifyError{Kind: ErrCanceled}
	assert.Equal(t, "classification canceled after 0 attempt(s)", bare.Error())
	assert.True(t, errors.Is(bare, ErrCanceled))
}
