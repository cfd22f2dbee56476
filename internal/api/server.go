// Package api serves the built repository over HTTP: the precomputed
// document, read-only district queries and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/headcount/internal/analyst"
	"github.com/lox/headcount/internal/district"
	"github.com/lox/headcount/internal/metrics"
)

type Server struct {
	repo     *district.Repository
	analyst  *analyst.Analyst
	document []byte
	builtAt  time.Time
	port     string
}

// NewServer serves repo. document is returned verbatim from GET /.
func NewServer(repo *district.Repository, document []byte, builtAt time.Time, port string) *Server {
	return &Server{
		repo:     repo,
		analyst:  analyst.New(repo),
		document: document,
		builtAt:  builtAt,
		port:     port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /{$}", "index", s.handleDocument)
	s.handle(mux, "GET /health", "health", s.handleHealth)
	s.handle(mux, "GET /api/districts", "districts", s.handleDistricts)
	s.handle(mux, "GET /api/districts/{name}", "district", s.handleDistrict)
	s.handle(mux, "GET /api/growth", "growth", s.handleGrowth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
