// Package app assembles the alert engine from configuration. Both the API
// server and the CLI build the same stack through Open.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/albapepper/tennis-alerts/internal/config"
	"github.com/albapepper/tennis-alerts/internal/db"
	"github.com/albapepper/tennis-alerts/internal/delivery"
	"github.com/albapepper/tennis-alerts/internal/notifications"
	"github.com/albapepper/tennis-alerts/internal/provider/tennis"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// App is the wired engine.
type App struct {
	Config      *config.Config
	Pool        *db.Pool // nil with the file backend
	Repo        *store.Repository
	Tennis      *tennis.Client
	Dispatcher  *notifications.Dispatcher
	Coordinator *notifications.Coordinator
}

// Open connects the store backend and builds the data client, channels,
// dispatcher and coordinator.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg}

	var backend store.Backend
	if cfg.UsePostgres() {
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.Pool = pool
		backend = store.NewPostgresBackend(pool.Pool)
		logger.Info("Store backend: postgres",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	} else {
		backend = store.NewFileBackend(cfg.AlertStorePath)
		logger.Info("Store backend: file", "path", cfg.AlertStorePath)
	}
	a.Repo = store.NewRepository(backend, logger)

	a.Tennis = tennis.NewClient(cfg.TennisAPIBaseURL, cfg.TennisAPIKey, cfg.TennisAPIRPM, cfg.TennisAPITimeout, logger)

	channels := []delivery.Channel{
		delivery.NewEmailChannel(delivery.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			UseTLS:   cfg.SMTPUseTLS,
			Timeout:  cfg.DeliveryTimeout,
		}),
		delivery.NewTelegramChannel("", cfg.TelegramToken, cfg.TelegramChatID, cfg.DeliveryTimeout),
		delivery.NewDiscordChannel(cfg.DiscordWebhook, cfg.DeliveryTimeout),
		delivery.NewWebPushChannel(logger),
	}
	for _, c := range channels {
		logger.Info("Delivery channel", "channel", c.Name(), "configured", c.Configured())
	}
	a.Dispatcher = notifications.NewDispatcher(logger, channels...)
	a.Coordinator = notifications.NewCoordinator(a.Repo, a.Tennis, a.Dispatcher, logger)
	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
