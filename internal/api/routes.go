package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/archetype/origin-gateway/internal/auth"
	"github.com/archetype/origin-gateway/internal/config"
	"github.com/archetype/origin-gateway/internal/pkg/httputil"
)

// SetupRoutes configures all API routes.
func SetupRoutes(cfg config.ServerConfig, h *Handlers, authManager *auth.Manager, health *HealthChecker) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(recoverPanics)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - allow credentials for auth cookies
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks (no auth required)
	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}

	// Auth routes (no auth required)
	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	devMode := os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development"

	r.Route("/api", func(r chi.Router) {
		r.Use(h.apiRateLimit)

		// Public admission surface
		r.Post("/waitlist", h.JoinWaitlist)
		r.Get("/waitlist", h.GetWaitlistCount)

		// Telemetry is public and always returns 200 on well-formed requests
		r.Post("/telemetry", h.RecordTelemetry)

		// Reviewer surface (admin clearance required, skip in dev mode)
		r.Group(func(r chi.Router) {
			if !devMode {
				r.Use(requireAdmin(authManager))
			}
			r.Get("/waitlist/stats", h.GetWaitlistStats)
			r.Put("/waitlist/status", h.UpdateBelieverStatus)
		})
	})

	return r
}

// recoverPanics converts an unhandled panic into the generic UNKNOWN_ERROR
// envelope so clients always get the JSON error shape, never a plain-text 500.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				httputil.InternalError(w, fmt.Errorf("panic in %s %s: %v", req.Method, req.URL.Path, rec))
			}
		}()
		next.ServeHTTP(w, req)
	})
}

// requireAdmin rejects requests without an admin session. A nil auth manager
// means the identity subsystem is off, which closes the reviewer surface
// entirely rather than opening it.
func requireAdmin(authManager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if authManager == nil || !authManager.IsAdmin(req) {
				httputil.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
