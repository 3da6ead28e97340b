// Package metrics holds the Prometheus collectors for the alert engine:
// scheduler runs, detected and delivered events, per-channel delivery
// outcomes, upstream data API health and management API traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_alert_runs_total",
			Help: "Alert runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // outcome: ok, skipped, busy, failed
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tennis_alert_run_duration_seconds",
			Help:    "Duration of completed alert runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Events
	EventsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_alert_events_detected_total",
			Help: "New (not yet delivered) events by event type",
		},
		[]string{"event_type"},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_alert_events_delivered_total",
			Help: "Events marked sent after a successful delivery",
		},
		[]string{"event_type"},
	)

	RulesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_alert_rules_skipped_total",
			Help: "Rules skipped by gating",
		},
		[]string{"reason"}, // quiet_hours, cooldown
	)

	// Delivery
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_alert_delivery_attempts_total",
			Help: "Channel delivery attempts by outcome",
		},
		[]string{"channel", "outcome"}, // outcome: success, failure
	)

	// Upstream
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_upstream_requests_total",
			Help: "Tennis data API requests by endpoint",
		},
		[]string{"endpoint"},
	)

	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_upstream_failures_total",
			Help: "Tennis data API requests that degraded to an empty result",
		},
		[]string{"endpoint", "reason"}, // reason: status, decode, transport, breaker
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tennis_upstream_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Management API
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_api_requests_total",
			Help: "Management API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tennis_api_request_duration_seconds",
			Help:    "Management API request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// Store
	StoreResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tennis_alert_store_resets_total",
			Help: "Times an unreadable store was reset to defaults",
		},
	)

	SentEventsSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tennis_alert_sent_events",
			Help: "Entries in the dedup table after the last run",
		},
	)
)

// RecordRun records one finished run.
func RecordRun(trigger, outcome string, duration time.Duration) {
	RunsTotal.WithLabelValues(trigger, outcome).Inc()
	if duration > 0 {
		RunDuration.Observe(duration.Seconds())
	}
}

// RecordDelivery records a single channel attempt.
func RecordDelivery(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	DeliveryAttempts.WithLabelValues(channel, outcome).Inc()
}

// RecordAPIRequest records one management API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequests.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
