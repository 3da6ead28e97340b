package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/tennis-alerts/internal/metrics"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// RunResult summarizes one run. OK is false when the run was refused
// (already running, not configured) or failed.
type RunResult struct {
	OK             bool      `json:"ok"`
	Message        string    `json:"message"`
	Trigger        string    `json:"trigger"`
	StartedAt      time.Time `json:"started_at"`
	DurationMS     int64     `json:"duration_ms"`
	RulesEvaluated int       `json:"rules_evaluated"`
	RulesSkipped   int       `json:"rules_skipped"`
	EventsDetected int       `json:"events_detected"`
	EventsSent     int       `json:"events_sent"`
	FailedRules    int       `json:"failed_rules"`
}

// Coordinator runs the alert pipeline. Run is single-flight: a call made
// while another run is in progress returns immediately.
type Coordinator struct {
	running    sync.Mutex
	repo       *store.Repository
	source     Source
	dispatcher *Dispatcher
	logger     *slog.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewCoordinator wires the pipeline.
func NewCoordinator(repo *store.Repository, source Source, dispatcher *Dispatcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		repo:       repo,
		source:     source,
		dispatcher: dispatcher,
		logger:     logger,
		Now:        time.Now,
	}
}

// ruleOutcome is what one rule contributes to the persisted store.
type ruleOutcome struct {
	state   *store.RuleState
	sentIDs []string
}

// Run executes one full pass. It never panics.
func (c *Coordinator) Run(ctx context.Context, trigger string) (res RunResult) {
	if !c.running.TryLock() {
		metrics.RecordRun(trigger, "busy", 0)
		return RunResult{OK: false, Message: runBusyMessage, Trigger: trigger}
	}
	defer c.running.Unlock()

	now := c.Now().UTC()
	res = RunResult{Trigger: trigger, StartedAt: now}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("Alert run panicked", "trigger", trigger, "panic", p)
			res.OK = false
			res.Message = fmt.Sprintf("run failed: %v", p)
			c.recordHistory(ctx, store.LevelError, "Alert run failed unexpectedly",
				map[string]interface{}{"trigger": trigger, "error": fmt.Sprint(p)})
		}
		res.DurationMS = time.Since(start).Milliseconds()
		outcome := "ok"
		if !res.OK {
			outcome = "failed"
		}
		metrics.RecordRun(trigger, outcome, time.Since(start))
	}()

	doc, err := c.repo.Load(ctx)
	if err != nil {
		c.logger.Error("Alert run could not load store", "error", err)
		res.Message = "store unavailable: " + err.Error()
		return res
	}

	if doc.Email == "" || !c.dispatcher.EmailReady() {
		c.logger.Warn("Alert run skipped: recipient or SMTP not configured",
			"has_email", doc.Email != "", "smtp_ready", c.dispatcher.EmailReady())
		res.Message = "recipient email or SMTP is not configured"
		return res
	}
	if !doc.Enabled {
		res.OK = true
		res.Message = "alerts are disabled"
		return res
	}
	active := doc.EnabledRules()
	if len(active) == 0 {
		res.OK = true
		res.Message = "no enabled rules"
		return res
	}

	in := NewInputs(ctx, c.source.FetchBundle(ctx), c.source)
	c.logger.Info("Alert run started", "trigger", trigger, "rules", len(active), "matches", in.Bundle.Size())

	outcomes := make(map[string]ruleOutcome, len(active))
	var history []store.HistoryEntry
	addHistory := func(level, msg string, details map[string]interface{}) {
		history = append(history, store.HistoryEntry{Timestamp: c.Now().UTC(), Level: level, Message: msg, Details: details})
	}

	for _, r := range active {
		prev := doc.RuleState[r.ID]
		var lastSent *time.Time
		if prev != nil {
			lastSent = prev.LastSentAt
		}
		if InQuietHours(r, now) {
			res.RulesSkipped++
			metrics.RulesSkipped.WithLabelValues("quiet_hours").Inc()
			continue
		}
		if InCooldown(r, lastSent, now) {
			res.RulesSkipped++
			metrics.RulesSkipped.WithLabelValues("cooldown").Inc()
			continue
		}
		res.RulesEvaluated++

		work := prev.Clone()
		fresh := FilterNew(Detect(r, in, work, now), doc)
		if len(fresh) == 0 {
			outcomes[r.ID] = ruleOutcome{state: work}
			continue
		}
		res.EventsDetected += len(fresh)
		metrics.EventsDetected.WithLabelValues(string(r.EventType)).Add(float64(len(fresh)))

		report, err := c.dispatcher.Deliver(ctx, r, doc.Email, fresh)
		if err == nil && !report.OK() {
			err = fmt.Errorf("no channel delivered (failed: %s)", strings.Join(report.FailedChannels, ", "))
		}
		if err != nil {
			res.FailedRules++
			c.logger.Warn("Alert delivery failed", "rule_id", r.ID, "rule", r.Name, "events", len(fresh), "error", err)
			addHistory(store.LevelError, fmt.Sprintf("Delivery failed for %q", r.Name), map[string]interface{}{
				"rule_id": r.ID,
				"events":  len(fresh),
				"error":   err.Error(),
			})
			continue
		}

		sentAt := c.Now().UTC()
		work.LastSentAt = &sentAt
		ids := make([]string, len(fresh))
		for i, e := range fresh {
			ids[i] = e.EventID
		}
		outcomes[r.ID] = ruleOutcome{state: work, sentIDs: ids}
		res.EventsSent += len(fresh)
		metrics.EventsDelivered.WithLabelValues(string(r.EventType)).Add(float64(len(fresh)))

		details := map[string]interface{}{
			"rule_id":  r.ID,
			"events":   len(fresh),
			"channels": report.Delivered,
		}
		addHistory(store.LevelInfo, fmt.Sprintf("Sent %d alert(s) for %q", len(fresh), r.Name), details)
		if len(report.FailedChannels) > 0 {
			addHistory(store.LevelWarning, fmt.Sprintf("Some channels failed for %q", r.Name), map[string]interface{}{
				"rule_id":         r.ID,
				"failed_channels": report.FailedChannels,
				"errors":          report.Errors,
			})
		}
		for _, note := range report.Notes {
			addHistory(store.LevelInfo, note, map[string]interface{}{"rule_id": r.ID})
		}
	}

	if err := c.persist(ctx, now, outcomes, history); err != nil {
		c.logger.Error("Alert run could not save store", "error", err)
		res.Message = "store save failed: " + err.Error()
		return res
	}

	res.OK = true
	res.Message = fmt.Sprintf("evaluated %d rule(s), sent %d new event(s)", res.RulesEvaluated, res.EventsSent)
	c.logger.Info("Alert run finished",
		"trigger", trigger,
		"evaluated", res.RulesEvaluated,
		"skipped", res.RulesSkipped,
		"sent", res.EventsSent,
		"failed_rules", res.FailedRules)
	return res
}

// persist merges run results into the latest stored document so rule edits
// made while the run was in flight survive. State of rules deleted during
// the run is dropped. Cancellation of ctx does not stop the write: events
// already delivered must be recorded as sent.
func (c *Coordinator) persist(ctx context.Context, now time.Time, outcomes map[string]ruleOutcome, history []store.HistoryEntry) error {
	_, err := c.repo.Update(context.WithoutCancel(ctx), func(latest *store.Document) error {
		for id, o := range outcomes {
			if latest.RuleIndex(id) < 0 {
				continue
			}
			latest.RuleState[id] = o.state
			latest.MarkSent(now, o.sentIDs...)
		}
		latest.CompactSentEvents(store.MaxSentEvents)

		newestFirst := make([]store.HistoryEntry, len(history))
		for i, h := range history {
			newestFirst[len(history)-1-i] = h
		}
		latest.PrependHistory(newestFirst)
		metrics.SentEventsSize.Set(float64(len(latest.SentEvents)))
		return nil
	})
	return err
}

func (c *Coordinator) recordHistory(ctx context.Context, level, msg string, details map[string]interface{}) {
	now := c.Now()
	if _, err := c.repo.Update(context.WithoutCancel(ctx), func(doc *store.Document) error {
		doc.AddHistory(now, level, msg, details)
		return nil
	}); err != nil {
		c.logger.Error("Failed to record history", "error", err)
	}
}

// Running reports whether a run is in progress.
func (c *Coordinator) Running() bool {
	if c.running.TryLock() {
		c.running.Unlock()
		return false
	}
	return true
}
