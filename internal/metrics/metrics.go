package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the classifier's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// AttemptsTotal counts remote attempts by provider and outcome
	// (success, transport, parse, unknown, canceled).
	AttemptsTotal *prometheus.CounterVec

	// FallbacksTotal counts degraded results by the failure kind that caused them.
	FallbacksTotal *prometheus.CounterVec

	// ClassifyDuration tracks end-to-end Classify latency by result source.
	ClassifyDuration *prometheus.HistogramVec

	// BatchSize tracks the number of requests per batch.
	BatchSize prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intent_attempts_total",
				Help: "Total number of remote classification attempts",
			},
			[]string{"provider", "outcome"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intent_fallbacks_total",
				Help: "Total number of rule-based fallback classifications",
			},
			[]string{"reason"},
		),
		ClassifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intent_classify_duration_seconds",
				Help:    "Classification latency in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "intent_batch_size",
				Help:    "Number of requests per classification batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.AttemptsTotal, m.FallbacksTotal, m.ClassifyDuration, m.BatchSize)
	}
	return m
}

func (m *Metrics) ObserveAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveClassify(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.ClassifyDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
}
