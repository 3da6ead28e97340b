// Package scheduler runs the alert pipeline and store housekeeping as Go
// tickers. The service is already long-running (required for LISTEN/NOTIFY),
// so all periodic work is driven from here.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/tennis-alerts/internal/metrics"
	"github.com/albapepper/tennis-alerts/internal/notifications"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// Config controls task intervals. Zero duration disables a task.
type Config struct {
	AlertInterval        time.Duration // Full alert run
	HousekeepingInterval time.Duration // Sent-events compaction
	RunOnStart           bool          // Fire one run immediately
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		AlertInterval:        300 * time.Second,
		HousekeepingInterval: 1 * time.Hour,
		RunOnStart:           true,
	}
}

// Runner is the part of the coordinator the scheduler drives.
type Runner interface {
	Run(ctx context.Context, trigger string) notifications.RunResult
}

// Start launches all configured tickers. Blocks until ctx is cancelled.
// Intended to be called with `go`. repo may be nil to skip housekeeping.
func Start(ctx context.Context, runner Runner, repo *store.Repository, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Scheduler started",
		"alert_interval", cfg.AlertInterval,
		"housekeeping", cfg.HousekeepingInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	alert := func() { runAlerts(ctx, runner, logger) }

	if cfg.RunOnStart && cfg.AlertInterval > 0 {
		go alert()
	}

	// Alerts: poll, detect, deliver
	if cfg.AlertInterval > 0 {
		t := time.NewTicker(cfg.AlertInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, alert)
	}

	// Housekeeping: bound the dedup table between runs
	if cfg.HousekeepingInterval > 0 && repo != nil {
		t := time.NewTicker(cfg.HousekeepingInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { housekeeping(ctx, repo, logger) })
	}

	<-ctx.Done()
	logger.Info("Scheduler stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func runAlerts(ctx context.Context, runner Runner, logger *slog.Logger) {
	res := runner.Run(ctx, notifications.TriggerSchedule)
	if !res.OK {
		logger.Warn("Scheduled run did not complete", "message", res.Message)
	}
}

// housekeeping compacts the sent-events table to its cap and refreshes the
// size gauge.
func housekeeping(ctx context.Context, repo *store.Repository, logger *slog.Logger) {
	removed := 0
	doc, err := repo.Update(ctx, func(doc *store.Document) error {
		removed = doc.CompactSentEvents(store.MaxSentEvents)
		return nil
	})
	if err != nil {
		logger.Warn("Housekeeping: store update failed", "error", err)
		return
	}
	metrics.SentEventsSize.Set(float64(len(doc.SentEvents)))
	if removed > 0 {
		logger.Info("Housekeeping: compacted sent events", "removed", removed, "kept", len(doc.SentEvents))
	}
}
