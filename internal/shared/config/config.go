package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Redis (empty disables the response cache)
	RedisURL string

	// Upstream provider
	UpstreamURL     string
	UpstreamTimeout time.Duration

	// Background persistence
	PersistTimeout  time.Duration
	DeferredWorkers int
	DeferredBuffer  int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseDriver:  getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		UpstreamURL:     getEnv("UPSTREAM_URL", "https://api.openai.com"),
		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 120)) * time.Second,
		PersistTimeout:  time.Duration(getEnvInt("PERSIST_TIMEOUT_SECONDS", 10)) * time.Second,
		DeferredWorkers: getEnvInt("DEFERRED_WORKERS", 4),
		DeferredBuffer:  getEnvInt("DEFERRED_BUFFER", 1024),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}

	if c.UpstreamURL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	if c.DeferredWorkers <= 0 {
		return fmt.Errorf("DEFERRED_WORKERS must be positive")
	}
	if c.DeferredBuffer < 0 {
		return fmt.Errorf("DEFERRED_BUFFER must not be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
