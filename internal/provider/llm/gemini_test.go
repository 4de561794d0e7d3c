package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGemini_MissingKey(t *testing.T) {
	_, err := NewGemini("", "", "", time.Second, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestGemini_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello prompt", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 1000, req.GenerationConfig.MaxOutputTokens)
		assert.InDelta(t, 0.1, req.GenerationConfig.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"primary\":"},{"text":"\"Logistics\"}"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini("g-key", "", srv.URL, 5*time.Second, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, g.Model())

	out, err := g.Generate(context.Background(), "hello prompt", 1000, 0.1)
	require.NoError(t, err)
	assert.Equal(t, `{"primary":"Logistics"}`, out)
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, "unexpected status 429"},
		{"bad json", http.StatusOK, `not json`, "decoding response"},
		{"blocked", http.StatusOK, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`, "prompt blocked: SAFETY"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"empty parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`, `finish reason "MAX_TOKENS"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g, err := NewGemini("k", "", srv.URL, 5*time.Second, testLogger())
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), "p", 10, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGemini_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g, err := NewGemini("k", "", srv.URL, 5*time.Second, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx, "p", 10, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
