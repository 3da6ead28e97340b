// Package handler provides HTTP handlers for the management API. Handlers
// read and mutate the store through store.Repository; runs go through the
// single-flight coordinator.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/albapepper/tennis-alerts/internal/api/respond"
	"github.com/albapepper/tennis-alerts/internal/cache"
	"github.com/albapepper/tennis-alerts/internal/notifications"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// Runner runs the alert pipeline.
type Runner interface {
	Run(ctx context.Context, trigger string) notifications.RunResult
	Running() bool
}

// Mailer sends the test email.
type Mailer interface {
	EmailReady() bool
	SendTest(ctx context.Context, recipient string) error
}

// Autocomplete looks up names for the rule editor.
type Autocomplete interface {
	Tournaments(ctx context.Context, tour string) []string
	SearchPlayers(ctx context.Context, tour, query string, limit int) []string
}

// Deps are the handler dependencies.
type Deps struct {
	Repo          *store.Repository
	Runner        Runner
	Mailer        Mailer
	Autocomplete  Autocomplete
	Cache         *cache.Cache
	AlertInterval time.Duration
	Logger        *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	repo     *store.Repository
	runner   Runner
	mailer   Mailer
	lookup   Autocomplete
	cache    *cache.Cache
	interval time.Duration
	logger   *slog.Logger
	validate *validator.Validate

	now func() time.Time
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := d.Cache
	if c == nil {
		c = cache.New(false)
	}
	return &Handler{
		repo:     d.Repo,
		runner:   d.Runner,
		mailer:   d.Mailer,
		lookup:   d.Autocomplete,
		cache:    c,
		interval: d.AlertInterval,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Tennis Alerts API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"metrics": "/metrics",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"running":   h.runner.Running(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies the store backend is readable.
// @Summary Store health check
// @Description Verifies the alert store (file or Postgres) can be read.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		h.logger.Warn("Store health check failed", "backend", h.repo.Backend(), "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"backend":   h.repo.Backend(),
			"error":     "Store read check failed",
			"timestamp": h.now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"backend":   h.repo.Backend(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, hits, misses).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("Store operation failed", "op", op, "error", err)
	respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Alert store is unavailable")
}
