// Package listener provides a Postgres LISTEN/NOTIFY consumer that lets other
// processes request an alert run. It holds a dedicated pgx connection (not
// from the pool) listening on the `tennis_alerts_run` channel.
//
// `alertctl run --notify` (or any client issuing pg_notify) wakes the server,
// which runs the pipeline through the same single-flight coordinator as the
// scheduler.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/tennis-alerts/internal/db"
	"github.com/albapepper/tennis-alerts/internal/notifications"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Runner is the part of the coordinator the listener drives.
type Runner interface {
	Run(ctx context.Context, trigger string) notifications.RunResult
}

// Start opens a dedicated connection and listens on db.RunChannel. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, runner Runner, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, runner, logger)
		if ctx.Err() != nil {
			logger.Info("Run listener stopped (context cancelled)")
			return
		}

		logger.Error("Run listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, runner Runner, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+db.RunChannel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", db.RunChannel, err)
	}
	logger.Info("Run listener connected", "channel", db.RunChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		logger.Info("Run requested", "channel", notification.Channel, "payload", notification.Payload)

		// Run asynchronously so a long run never blocks the listener; the
		// coordinator refuses overlapping runs.
		go handle(ctx, runner, notification.Payload, logger)
	}
}

func handle(ctx context.Context, runner Runner, payload string, logger *slog.Logger) {
	res := runner.Run(ctx, notifications.TriggerNotify)
	logger.Info("Notified run finished",
		"requested_by", payload,
		"ok", res.OK,
		"message", res.Message,
		"sent", res.EventsSent)
}
