// Package server provides the read-only HTTP history API over the run registry.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kurabe/internal/storage"
	"go.uber.org/zap"
)

// Config is the listen address of the history API.
type Config struct {
	Host string
	Port int
}

// DefaultConfig listens on localhost:8080.
func DefaultConfig() Config {
	return Config{Host: "localhost", Port: 8080}
}

// Server is the HTTP server for the history API.
type Server struct {
	registry storage.Registry
	config   Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server reading from registry.
func NewServer(registry storage.Registry, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/runs", s.handleListRuns)
	r.Get("/api/v1/runs/{runID}", s.handleGetRun)
	return r
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting history API", zap.String("addr", s.Addr()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
