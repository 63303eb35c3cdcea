package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Auth     AuthConfig     `yaml:"auth"`
	Waitlist WaitlistConfig `yaml:"waitlist"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the bind host, defaulting to all interfaces.
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "0.0.0.0"
	}
	return s.Host
}

// DatabaseConfig holds the PostgreSQL connection settings. An empty URL is
// legal: the service then runs in development mode with a non-authoritative
// in-memory store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// Configured reports whether a real database is available.
func (d DatabaseConfig) Configured() bool { return d.URL != "" }

// RedisConfig holds the rate-limiter backend settings. An empty address is
// legal: the edge then falls back to a per-instance in-memory limiter.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Configured reports whether a shared limiter backend is available.
func (r RedisConfig) Configured() bool { return r.URL != "" }

// SESConfig holds AWS SES credentials and sender identity for the
// notification path.
type SESConfig struct {
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Region         string `yaml:"region"`
	FromName       string `yaml:"from_name"`
	FromEmail      string `yaml:"from_email"`
	OperatorEmail  string `yaml:"operator_email"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Configured reports whether outbound email is available. Notification is
// fire-and-forget, so an unconfigured mailer only downgrades to log lines.
func (s SESConfig) Configured() bool { return s.AccessKey != "" && s.SecretKey != "" }

// AuthConfig holds Google OAuth settings plus the static admin allowlist.
// Unlike notification and telemetry, identity never degrades silently: if
// Enabled is true the config must be complete or startup fails.
type AuthConfig struct {
	Enabled            bool     `yaml:"enabled"`
	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleClientSecret string   `yaml:"google_client_secret"`
	AdminEmails        []string `yaml:"admin_emails"`
	SessionSecret      string   `yaml:"session_secret"`
	CookieName         string   `yaml:"cookie_name"`
	CookieMaxAge       int      `yaml:"cookie_max_age"`
}

// Validate checks that an enabled identity subsystem is fully specified.
func (a AuthConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.GoogleClientID == "" || a.GoogleClientSecret == "" {
		return fmt.Errorf("auth enabled but google client credentials are missing")
	}
	if len(a.AdminEmails) == 0 {
		return fmt.Errorf("auth enabled but admin_emails allowlist is empty")
	}
	return nil
}

// WaitlistConfig holds admission-flow tunables.
type WaitlistConfig struct {
	// Sliding-window rate limits, requests per window per IP.
	AdmissionLimit     int `yaml:"admission_limit"`
	AdmissionWindowSec int `yaml:"admission_window_sec"`
	TelemetryLimit     int `yaml:"telemetry_limit"`
	TelemetryWindowSec int `yaml:"telemetry_window_sec"`
	APILimit           int `yaml:"api_limit"`
	APIWindowSec       int `yaml:"api_window_sec"`

	// RecentSignups list size on the stats endpoint.
	RecentLimit int `yaml:"recent_limit"`
}

// Load reads configuration from a YAML file and applies defaults. A missing
// file is not an error; defaults plus env overrides are enough to boot in
// development mode.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{
			"https://archetypeorigininc.com",
			"http://localhost:3000",
			"http://localhost:8080",
		}
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.FromName == "" {
		cfg.SES.FromName = "ARCHETYPE ORIGIN DYNAMICS"
	}
	if cfg.SES.FromEmail == "" {
		cfg.SES.FromEmail = "noreply@archetypeorigininc.com"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "origin_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400
	}
	if cfg.Waitlist.AdmissionLimit == 0 {
		cfg.Waitlist.AdmissionLimit = 5
	}
	if cfg.Waitlist.AdmissionWindowSec == 0 {
		cfg.Waitlist.AdmissionWindowSec = 60
	}
	if cfg.Waitlist.TelemetryLimit == 0 {
		cfg.Waitlist.TelemetryLimit = 30
	}
	if cfg.Waitlist.TelemetryWindowSec == 0 {
		cfg.Waitlist.TelemetryWindowSec = 60
	}
	if cfg.Waitlist.APILimit == 0 {
		cfg.Waitlist.APILimit = 60
	}
	if cfg.Waitlist.APIWindowSec == 0 {
		cfg.Waitlist.APIWindowSec = 60
	}
	if cfg.Waitlist.RecentLimit == 0 {
		cfg.Waitlist.RecentLimit = 10
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if v := os.Getenv("OPERATOR_EMAIL"); v != "" {
		cfg.SES.OperatorEmail = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		var emails []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}
		cfg.Auth.AdminEmails = emails
	}
	if os.Getenv("AUTH_ENABLED") == "true" {
		cfg.Auth.Enabled = true
	}

	return cfg, nil
}
