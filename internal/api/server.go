package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/archetype/origin-gateway/internal/auth"
	"github.com/archetype/origin-gateway/internal/config"
)

// Server represents the API server
type Server struct {
	config      config.ServerConfig
	handler     http.Handler
	handlers    *Handlers
	server      *http.Server
	authManager *auth.Manager
	router      *chi.Mux
}

// NewServer creates a new API server. authManager may be nil when the
// identity subsystem is disabled; admin routes then reject every request.
func NewServer(cfg config.ServerConfig, h *Handlers, authManager *auth.Manager, health *HealthChecker) *Server {
	router := SetupRoutes(cfg, h, authManager, health)

	return &Server{
		config:      cfg,
		handler:     router,
		handlers:    h,
		authManager: authManager,
		router:      router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
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
