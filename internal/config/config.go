// Package config loads the process configuration from the environment.
//
// A .env file in the working directory is read first when present; values
// already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Env  string
	Port int

	DBPath   string
	MediaDir string

	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	AdminEmails        []string

	// RedisURL enables the asynq worker and the cross-process change relay.
	// Empty runs triggers in-process.
	RedisURL         string
	ReminderSchedule string

	LogLevel  string
	LogFormat string

	// Warnings collects insecure defaults that were applied.
	Warnings []string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, defaultValue string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return defaultValue
	}

	cfg := &Config{
		Env:                get("ENV", "development"),
		DBPath:             get("DB_PATH", "data/maeuln.db"),
		MediaDir:           get("MEDIA_DIR", "data/media"),
		JWTSecret:          get("JWT_SECRET", ""),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  get("GOOGLE_CALLBACK_URL", ""),
		AdminEmails:        splitList(get("ADMIN_EMAILS", "")),
		RedisURL:           get("REDIS_URL", ""),
		ReminderSchedule:   get("REMINDER_SCHEDULE", "@every 10m"),
		LogLevel:           get("LOG_LEVEL", "info"),
		LogFormat:          get("LOG_FORMAT", "text"),
	}

	portStr := get("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", portStr)
	}
	cfg.Port = port

	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", port)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("config: JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
		cfg.Warnings = append(cfg.Warnings,
			"using default JWT_SECRET; generate one with: openssl rand -hex 32")
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// splitList splits a comma separated list, dropping blanks and lowering
// case.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
