package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/cache"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/deferred"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/handlers"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/prompt"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/config"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/database"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/logging"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	slog.SetDefault(logger)

	logger.Info("starting llm0 observability gateway", "port", cfg.Port, "env", cfg.Env, "upstream", cfg.UpstreamURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		fatal(logger, "failed to migrate database", err)
	}
	logger.Info("connected to database", "driver", db.Driver())

	// Redis is optional; without it the response cache is off
	var responseCache handlers.ResponseCache
	if cfg.RedisURL != "" {
		redisClient, err := redis.New(ctx, cfg.RedisURL)
		if err != nil {
			fatal(logger, "failed to connect to redis", err)
		}
		defer redisClient.Close()
		responseCache = cache.New(redisClient)
		logger.Info("response cache enabled")
	}

	upstream, err := providers.NewUpstream(cfg.UpstreamURL, cfg.UpstreamTimeout)
	if err != nil {
		fatal(logger, "invalid upstream", err)
	}

	runner := deferred.New(deferred.Config{
		Workers:     cfg.DeferredWorkers,
		Buffer:      cfg.DeferredBuffer,
		TaskTimeout: cfg.PersistTimeout,
	})

	gateway := handlers.NewGateway(handlers.GatewayConfig{
		Upstream:       upstream,
		Store:          db,
		Tasks:          runner,
		Cache:          responseCache,
		Formatter:      prompt.NewFormatter(),
		PersistTimeout: cfg.PersistTimeout,
	})
	ingest := handlers.NewIngestHandler(db)
	middleware := handlers.NewMiddleware(logger)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/{provider}/v1/log", ingest.HandleLog)

	// everything else is proxied to the upstream provider
	r.Handle("/*", gateway)

	// no write timeout: upstream calls are bounded by UPSTREAM_TIMEOUT_SECONDS
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "server failed", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// handlers are done; flush pending response records before the pool closes
	runner.Close()

	logger.Info("server stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
