package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/shahar-caura/supportintent/internal/provider/notifier"
)

// Options configures a Server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string

	// Batch holds the defaults for POST /v1/classify/batch; request bodies
	// may override them.
	Batch intent.BatchOptions

	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Alert is checked after every batch. May be nil.
	Alert *notifier.DegradationAlert
}

// Server is the classification HTTP API.
type Server struct {
	opts       Options
	classifier Classifier
	startTime  time.Time
	logger     *slog.Logger
}

// New creates a Server.
func New(opts Options, classifier Classifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		opts:       opts,
		classifier: classifier,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() (http.Handler, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		Version:    s.opts.Version,
		StartTime:  s.startTime,
		Classifier: s.classifier,
		Batch:      s.opts.Batch,
		Alert:      s.opts.Alert,
		Logger:     s.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.GetHealth)
	mux.Handle("POST /v1/classify", v.middleware(http.HandlerFunc(h.Classify)))
	mux.Handle("POST /v1/classify/batch", v.middleware(http.HandlerFunc(h.ClassifyBatch)))
	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return withRequestLog(s.logger, mux), nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	// Start listener so we can log the actual port.
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}

	s.logger.Info("intent server started", "addr", ln.Addr().String(), "version", s.opts.Version)

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.logger.Info("intent server stopped")
	return nil
}
