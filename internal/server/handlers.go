package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/shahar-caura/supportintent/internal/provider/notifier"
)

// Classifier is the subset of *intent.Classifier the API serves.
type Classifier interface {
	Classify(ctx context.Context, req intent.Request) (intent.Result, error)
	ClassifyBatch(ctx context.Context, reqs []intent.Request, opts intent.BatchOptions) ([]intent.Result, error)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
}

// BatchRequest is the body of POST /v1/classify/batch.
type BatchRequest struct {
	Requests   []intent.Request `json:"requests"`
	Parallel   *bool            `json:"parallel,omitempty"`
	MaxWorkers int              `json:"max_workers,omitempty"`
}

// BatchResponse is the body returned for a batch.
type BatchResponse struct {
	Results   []intent.Result `json:"results"`
	Fallbacks int             `json:"fallbacks"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Handlers serves the classification API.
type Handlers struct {
	Version    string
	StartTime  time.Time
	Classifier Classifier
	Batch      intent.BatchOptions
	Alert      *notifier.DegradationAlert
	Logger     *slog.Logger
}

func (h *Handlers) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       h.Version,
		UptimeSeconds: int(time.Since(h.StartTime).Seconds()),
	})
}

func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	var req intent.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decoding request: "+err.Error(), "invalid_request")
		return
	}

	res, err := h.Classifier.Classify(r.Context(), req)
	if err != nil {
		h.writeClassifyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decoding request: "+err.Error(), "invalid_request")
		return
	}

	opts := h.Batch
	if body.Parallel != nil {
		opts.Parallel = *body.Parallel
	}
	if body.MaxWorkers > 0 {
		opts.MaxWorkers = body.MaxWorkers
	}

	results, err := h.Classifier.ClassifyBatch(r.Context(), body.Requests, opts)
	if err != nil {
		h.writeClassifyError(w, r, err)
		return
	}

	if h.Alert != nil {
		go func() { _, _ = h.Alert.Check(context.WithoutCancel(r.Context()), results) }()
	}

	resp := BatchResponse{Results: results}
	for _, res := range results {
		if res.Source == intent.SourceFallback {
			resp.Fallbacks++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, intent.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
	case errors.Is(err, intent.ErrCanceled):
		h.Logger.Warn("classification canceled", "request_id", RequestID(r.Context()), "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error(), "canceled")
	case errors.Is(err, intent.ErrTransport):
		writeError(w, http.StatusBadGateway, err.Error(), "transport")
	case errors.Is(err, intent.ErrParse):
		writeError(w, http.StatusBadGateway, err.Error(), "parse")
	default:
		h.Logger.Error("classification failed", "request_id", RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), "unknown")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}
