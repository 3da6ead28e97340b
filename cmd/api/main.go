// Command api is the tennis alerts server: management API, scheduler and,
// with a Postgres store, the LISTEN consumer for remote run requests.
//
// Usage:
//
//	tennis-alerts-api
//	API_PORT=8080 ALERT_INTERVAL_SECONDS=120 tennis-alerts-api

// @title Tennis Alerts API
// @version 1.0.0
// @description Management API for the tennis event notification engine: recipient settings, alert rules, manual runs and delivery history.
// @host localhost:8000
// @BasePath /api
// @schemes http https
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/tennis-alerts/internal/api"
	"github.com/albapepper/tennis-alerts/internal/api/handler"
	"github.com/albapepper/tennis-alerts/internal/app"
	"github.com/albapepper/tennis-alerts/internal/cache"
	"github.com/albapepper/tennis-alerts/internal/config"
	"github.com/albapepper/tennis-alerts/internal/listener"
	"github.com/albapepper/tennis-alerts/internal/scheduler"

	_ "github.com/albapepper/tennis-alerts/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Store, data client, channels, coordinator
	engine, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start alert engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Scheduler: periodic runs and store housekeeping
	schedCfg := scheduler.DefaultConfig()
	schedCfg.AlertInterval = cfg.AlertInterval
	go scheduler.Start(ctx, engine.Coordinator, engine.Repo, schedCfg, logger)

	// LISTEN/NOTIFY consumer for runs requested by other processes
	if engine.Pool != nil {
		go listener.Start(ctx, cfg.DatabaseURL, engine.Coordinator, logger)
	} else {
		logger.Info("Run listener disabled (file store backend)")
	}

	// Create router
	router := api.NewRouter(handler.Deps{
		Repo:          engine.Repo,
		Runner:        engine.Coordinator,
		Mailer:        engine.Dispatcher,
		Autocomplete:  engine.Tennis,
		Cache:         appCache,
		AlertInterval: cfg.AlertInterval,
		Logger:        logger,
	}, cfg)

	// Create HTTP server. Run-now and test-email block on upstream and SMTP
	// calls, so the write timeout is generous.
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Tennis Alerts API",
			"addr", addr,
			"environment", cfg.Environment,
			"interval", cfg.AlertInterval,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
