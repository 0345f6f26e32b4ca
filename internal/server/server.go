// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sharevault/internal/config"
	"sharevault/internal/metrics"
	"sharevault/internal/models"
	"sharevault/internal/pipeline"
)

const shutdownTimeout = 15 * time.Second

// Analyser is the part of the pipeline the upload handler needs.
type Analyser interface {
	AnalyseFile(ctx context.Context, path string, opts pipeline.Options) ([]models.EnrichedLink, error)
}

type Server struct {
	cfg      config.Config
	analyser Analyser
	log      logrus.FieldLogger
	metrics  metrics.Metrics
}

func New(cfg config.Config, analyser Analyser, log logrus.FieldLogger, m metrics.Metrics) *Server {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Server{cfg: cfg, analyser: analyser, log: log.WithField("component", "server"), metrics: m}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	upload := MetricsMiddleware(s.metrics, "upload", http.HandlerFunc(s.handleUpload))
	mux.Handle("POST /upload", upload)
	mux.Handle("POST /analyse", upload)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetRegistry(), promhttp.HandlerOpts{}))

	return RecoveryMiddleware(s.log, CORSMiddleware(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Requests in flight
// at that point keep their own context and are drained for up to
// shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("sharevault listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, models.ErrorResponse{Error: msg})
}
