// Package config loads and validates application configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to 8080.
	Port int

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// JWTSecret is the HS256 key bearer tokens are verified with. Required.
	JWTSecret string

	// LogLevel is the minimum slog level: debug, info, warn or error.
	LogLevel string

	// CORSOrigins lists allowed cross-origin request origins.
	CORSOrigins []string

	// AMQPURL enables the RabbitMQ event publisher when set.
	AMQPURL string

	// AMQPExchange is the topic exchange events are published to.
	AMQPExchange string

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64

	// RequestTimeout bounds each request's context.
	RequestTimeout time.Duration

	// MigrateOnStart applies pending goose migrations at boot.
	MigrateOnStart bool
}

// Load reads configuration from the environment. Variables already set in
// the process win over those in envFiles (default ".env"); a missing file is
// not an error. Every problem found is reported in one error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config.Load: read %s: %w", f, err)
		}
	}

	var problems []string
	cfg := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fleetops.events"),
	}
	for _, req := range []struct{ key, val string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"JWT_SECRET", cfg.JWTSecret},
	} {
		if req.val == "" {
			problems = append(problems, req.key+" is required")
		}
	}

	var err error
	if cfg.Port, err = cast.ToIntE(getEnv("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		problems = append(problems, "PORT must be a valid TCP port")
	}
	if cfg.MaxBodyBytes, err = cast.ToInt64E(getEnv("MAX_BODY_BYTES", "1048576")); err != nil || cfg.MaxBodyBytes <= 0 {
		problems = append(problems, "MAX_BODY_BYTES must be a positive integer")
	}
	if cfg.RequestTimeout, err = cast.ToDurationE(getEnv("REQUEST_TIMEOUT", "10s")); err != nil || cfg.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be a positive duration")
	}
	if cfg.MigrateOnStart, err = cast.ToBoolE(getEnv("MIGRATE_ON_START", "true")); err != nil {
		problems = append(problems, "MIGRATE_ON_START must be a boolean")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "LOG_LEVEL must be one of debug, info, warn, error")
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config.Load: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// getEnv returns the value of key, or fallback if it is unset or empty.
func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
