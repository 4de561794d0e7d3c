package intent

import (
	"errors"
	"testing"

	"github.com/shahar-caura/supportintent/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultResolver(t *testing.T) *Resolver {
	t.Helper()
	tax, err := taxonomy.Default()
	require.NoError(t, err)
	return NewResolver(tax.Fallback, tax.Default)
}

func TestResolve_NoMatchReturnsDefault(t *testing.T) {
	r := defaultResolver(t)

	got := r.Resolve(Request{Message: "Xxxxxxxxxx"}, errors.New("boom"))
	assert.Equal(t, "Special Categories", got.Primary)
	assert.Equal(t, "out_of_scope", got.Secondary)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Contains(t, got.Reasoning, "boom")
}

func TestResolve_WhereIsMyOrder(t *testing.T) {
	r := defaultResolver(t)

	got := r.Resolve(Request{Message: "where is my order"}, errors.New("boom"))
	assert.Equal(t, "Logistics", got.Primary)
	assert.Equal(t, "order_status", got.Secondary)
	assert.Contains(t, got.Reasoning, "rule-based fallback")
}

func TestResolve_Priority(t *testing.T) {
	r := defaultResolver(t)

	tests := []struct {
		name      string
		req       Request
		secondary string
	}{
		{"greeting with question", Request{Message: "Hi, where is my order?"}, "order_status"},
		{"delivered but not received beats order status", Request{Message: "Tracking shows delivered but I have not received it"}, "order_delivered_but_not_received"},
		{"delay", Request{Message: "Why is it so delayed"}, "delivery_delay"},
		{"damaged", Request{Message: "The bottle came DAMAGED"}, "wrong_order"},
		{"language before greeting", Request{Message: "Hindi mein bolo"}, "language_preference"},
		{"acknowledgment", Request{Message: "Okay"}, "acknowledgment"},
		{"greeting", Request{Message: "Hello"}, "greetings"},
		{"history counts", Request{History: "human: where is my order", Message: "9876543210"}, "order_status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.req, nil)
			assert.Equal(t, tt.secondary, got.Secondary)
		})
	}
}

func TestResolve_FirstRuleWins(t *testing.T) {
	rules := []taxonomy.FallbackRule{
		{Primary: "A", Secondary: "first", Keywords: []string{"shared"}},
		{Primary: "B", Secondary: "second", Keywords: []string{"shared", "other"}},
	}
	r := NewResolver(rules, taxonomy.Pair{Primary: "Z", Secondary: "none"})

	for i := 0; i < 50; i++ {
		assert.Equal(t, "first", r.Resolve(Request{Message: "a shared word"}, nil).Secondary)
	}
	assert.Equal(t, "second", r.Resolve(Request{Message: "other"}, nil).Secondary)
}

func TestResolve_NilCause(t *testing.T) {
	r := NewResolver(nil, taxonomy.Pair{Primary: "Special Categories", Secondary: "out_of_scope"})

	got := r.Resolve(Request{Message: "anything"}, nil)
	assert.Equal(t, "out_of_scope", got.Secondary)
	assert.Contains(t, got.Reasoning, "unknown error")
}

func TestNewResolver_CopiesRules(t *testing.T) {
	rules := []taxonomy.FallbackRule{{Primary: "A", Secondary: "a", Keywords: []string{"Alpha"}}}
	r := NewResolver(rules, taxonomy.Pair{Primary: "Z", Secondary: "z"})
	rules[0].Keywords[0] = "changed"

	assert.Equal(t, "a", r.Resolve(Request{Message: "ALPHA"}, nil).Secondary)
}
