// Package server provides the HTTP API over the retrieval engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/ingest"
	"github.com/hyperjump/kensaku/internal/query"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Kensaku API.
type Server struct {
	service  *query.Service
	pipeline *ingest.Pipeline
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. pipeline may be nil;
// when nil the file-ingestion endpoint is disabled.
func NewServer(service *query.Service, pipeline *ingest.Pipeline, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		service:  service,
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// Routes returns the HTTP handler with all routes and middleware attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/documents", s.handleIngest)
	r.Post("/api/v1/ingest/file", s.handleIngestFile)
	r.Post("/api/v1/save", s.handleSave)
	r.Get("/api/v1/stats", s.handleStats)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
