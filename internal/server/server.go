// Package server serves a raster catalog over HTTP: dataset profiles as
// YAML and dataset footprints as FlatGeobuf or GeoJSON.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tingold/orb-rasterprofile/engine/catalog"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Logger    *slog.Logger
	Metrics   bool   // serve /metrics and instrument handlers
	IndexName string // layer name of served indexes, default "footprints"
}

// Server holds the HTTP server state
type Server struct {
	engine    *catalog.Engine
	logger    *slog.Logger
	metrics   *Metrics
	registry  *prometheus.Registry
	indexName string
}

// New returns a server for engine. The engine stays owned by the caller.
func New(engine *catalog.Engine, opts *Options) *Server {
	if opts == nil {
		opts = &Options{}
	}
	s := &Server{
		engine:    engine,
		logger:    opts.Logger,
		indexName: opts.IndexName,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.indexName == "" {
		s.indexName = "footprints"
	}
	if opts.Metrics {
		s.registry = prometheus.NewRegistry()
		s.metrics = NewMetrics(s.registry)
	}
	return s
}

// Handler returns the router with all routes configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Get("/health", s.metrics.InstrumentHandler("GET", "/health", s.handleHealth))
	r.Get("/datasets", s.metrics.InstrumentHandler("GET", "/datasets", s.handleListDatasets))
	r.Get("/datasets/*", s.metrics.InstrumentHandler("GET", "/datasets/*", s.handleGetDataset))
	r.Get("/footprints.fgb", s.metrics.InstrumentHandler("GET", "/footprints.fgb", s.handleFlatGeobuf))
	r.Get("/footprints.geojson", s.metrics.InstrumentHandler("GET", "/footprints.geojson", s.handleGeoJSON))

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("server started", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped", "addr", addr)
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
