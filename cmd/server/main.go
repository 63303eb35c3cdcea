package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/archetype/origin-gateway/internal/api"
	"github.com/archetype/origin-gateway/internal/auth"
	"github.com/archetype/origin-gateway/internal/config"
	"github.com/archetype/origin-gateway/internal/notify"
	"github.com/archetype/origin-gateway/internal/pkg/logger"
	"github.com/archetype/origin-gateway/internal/ratelimit"
	"github.com/archetype/origin-gateway/internal/repository/postgres"
	"github.com/archetype/origin-gateway/internal/service/telemetry"
	"github.com/archetype/origin-gateway/internal/service/waitlist"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from a stale process occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// openDatabase connects to PostgreSQL with conservative timeouts. A nil
// return is not fatal: the gateway keeps serving in development mode with
// placeholder positions until the store comes back.
func openDatabase(dbURL string) *sql.DB {
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	if !strings.Contains(dbURL, "connect_timeout") {
		dbURL += sep + "connect_timeout=5"
		sep = "&"
	}
	dbURL += sep + "options=-c%20statement_timeout%3D15000"

	log.Printf("DB URL host portion: ...@%s/...", extractHost(dbURL))
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Printf("Warning: failed to open database: %v", err)
		return nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		// Keep the handle: the pool retries on first use, and health checks
		// report the outage meanwhile.
		log.Printf("Warning: database ping failed: %v — continuing, store may recover", err)
	} else {
		log.Println("PostgreSQL connected")
	}
	return db
}

// connectRedis dials the Redis limiter backend. Failure is soft: rate
// limiting falls back to a per-instance in-memory window.
func connectRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL (%v) — using in-memory rate limiter", err)
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v — using in-memory rate limiter", err)
		client.Close()
		return nil
	}
	log.Println("Redis connected: shared rate limiting enabled")
	return client
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  ARCHETYPE ORIGIN Gateway (cmd/server/main.go)             ║")
	log.Println("║  Waitlist admission, reviewer, and telemetry API           ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	}
	if os.Getenv("DEV_MODE") == "true" {
		// Local debugging wants real addresses in the log lines.
		logger.SetRedactPII(false)
	}

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Identity is the one subsystem that refuses to boot half-configured.
	if err := cfg.Auth.Validate(); err != nil {
		log.Fatalf("Identity pre-flight FAILED: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Storage
	var db *sql.DB
	if cfg.Database.Configured() {
		db = openDatabase(cfg.Database.URL)
	} else {
		log.Println("No DATABASE_URL configured — running in development mode (positions are placeholders)")
	}

	// Rate limiter backend
	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient = connectRedis(cfg.Redis.URL)
	}

	newLimiter := func(prefix string, limit, windowSec int) ratelimit.Limiter {
		window := time.Duration(windowSec) * time.Second
		if redisClient != nil {
			return ratelimit.NewRedisLimiter(redisClient, prefix, limit, window)
		}
		return ratelimit.NewMemoryLimiter(limit, window)
	}
	admissionLimiter := newLimiter("waitlist", cfg.Waitlist.AdmissionLimit, cfg.Waitlist.AdmissionWindowSec)
	telemetryLimiter := newLimiter("telemetry", cfg.Waitlist.TelemetryLimit, cfg.Waitlist.TelemetryWindowSec)
	apiLimiter := newLimiter("api", cfg.Waitlist.APILimit, cfg.Waitlist.APIWindowSec)

	// Notification
	mailer := notify.NewMailer(cfg.SES)
	if cfg.SES.Configured() {
		log.Printf("SES mailer configured: from=%s region=%s", cfg.SES.FromEmail, cfg.SES.Region)
	} else {
		log.Println("SES not configured — notifications are log-only")
	}

	// Services
	var believerRepo waitlist.Repository
	var telemetryRepo telemetry.Repository
	if db != nil {
		believerRepo = postgres.NewBelieverRepo(db)
		telemetryRepo = postgres.NewTelemetryRepo(db)
	}
	waitlistSvc := waitlist.NewService(believerRepo, admissionLimiter, mailer, cfg.Waitlist.RecentLimit)
	telemetrySvc := telemetry.NewService(telemetryRepo)

	// Identity
	var authManager *auth.Manager
	if cfg.Auth.Enabled {
		baseURL := fmt.Sprintf("http://%s:%d", host, port)
		if envURL := os.Getenv("AUTH_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
		authManager = auth.NewManager(&cfg.Auth, baseURL)
		log.Printf("Google OAuth enabled: %d admin(s) allowlisted (callback: %s/auth/callback)",
			len(cfg.Auth.AdminEmails), baseURL)

		// Periodic sweep so abandoned sessions don't accumulate.
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				authManager.CleanupExpiredSessions()
			}
		}()
	} else {
		log.Println("Auth disabled — reviewer endpoints reject all requests")
	}

	handlers := api.NewHandlers(waitlistSvc, telemetrySvc, apiLimiter, telemetryLimiter)
	health := api.NewHealthChecker(db, redisClient, cfg.SES.Configured())
	server := api.NewServer(cfg.Server, handlers, authManager, health)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — gateway is ready")

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}

	log.Println("Server stopped")
}
