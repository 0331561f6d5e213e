// Package api exposes the Mandrill gateway over HTTP so services that are
// not written in Go can send templates through the same configured profiles.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/mandrill-gateway/internal/config"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(h, cfg),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
