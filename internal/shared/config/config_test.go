package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/llm0")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("UPSTREAM_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %s", cfg.Port)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Fatalf("driver = %s", cfg.DatabaseDriver)
	}
	if cfg.UpstreamURL != "https://api.openai.com" {
		t.Fatalf("upstream = %s", cfg.UpstreamURL)
	}
	if cfg.PersistTimeout != 10*time.Second {
		t.Fatalf("persist timeout = %v", cfg.PersistTimeout)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DEFERRED_WORKERS", "2")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DeferredWorkers != 2 {
		t.Fatalf("workers = %d", cfg.DeferredWorkers)
	}
	if cfg.UpstreamTimeout != 120*time.Second {
		t.Fatalf("invalid int should fall back to default, got %v", cfg.UpstreamTimeout)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{DatabaseURL: "x", DatabaseDriver: "mysql", UpstreamURL: "http://u", DeferredWorkers: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected driver error")
	}
}
