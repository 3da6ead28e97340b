// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/alertctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Scheduler bounds
// --------------------------------------------------------------------------

const (
	DefaultAlertInterval = 300 * time.Second
	MinAlertInterval     = 30 * time.Second
)

// --------------------------------------------------------------------------
// Config is populated from environment variables.
// --------------------------------------------------------------------------

type Config struct {
	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Tennis data API
	TennisAPIBaseURL string
	TennisAPIKey     string
	TennisAPIRPM     int
	TennisAPITimeout time.Duration

	// Alert engine
	AlertInterval  time.Duration
	AlertStorePath string

	// Optional Postgres store backend
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Delivery channels
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string
	SMTPUseTLS      bool
	TelegramToken   string
	TelegramChatID  string
	DiscordWebhook  string
	DeliveryTimeout time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	baseURL := strings.TrimRight(envOr("TENNIS_API_BASE_URL", ""), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("TENNIS_API_BASE_URL must be set")
	}

	return &Config{
		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		TennisAPIBaseURL: baseURL,
		TennisAPIKey:     envOr("TENNIS_API_KEY", ""),
		TennisAPIRPM:     envInt("TENNIS_API_RPM", 120),
		TennisAPITimeout: time.Duration(envInt("TENNIS_API_TIMEOUT_SECONDS", 20)) * time.Second,

		AlertInterval:  ClampInterval(time.Duration(envInt("ALERT_INTERVAL_SECONDS", 300)) * time.Second),
		AlertStorePath: envOr("ALERT_STORE_PATH", "data/alerts_store.json"),

		DatabaseURL:    envOr("ALERT_DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		SMTPHost:        envOr("SMTP_HOST", ""),
		SMTPPort:        envInt("SMTP_PORT", 587),
		SMTPUsername:    envOr("SMTP_USERNAME", ""),
		SMTPPassword:    envOr("SMTP_PASSWORD", ""),
		SMTPFrom:        envOr("SMTP_FROM", envOr("SMTP_USERNAME", "")),
		SMTPUseTLS:      envBool("SMTP_USE_TLS", true),
		TelegramToken:   envOr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:  envOr("TELEGRAM_CHAT_ID", ""),
		DiscordWebhook:  envOr("DISCORD_WEBHOOK_URL", ""),
		DeliveryTimeout: time.Duration(envInt("DELIVERY_TIMEOUT_SECONDS", 25)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SMTPReady reports whether enough SMTP settings exist to attempt a send.
func (c *Config) SMTPReady() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// UsePostgres reports whether the store should live in Postgres instead of a file.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// ClampInterval enforces the scheduler minimum. Non-positive values fall back
// to the default.
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultAlertInterval
	}
	if d < MinAlertInterval {
		return MinAlertInterval
	}
	return d
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
