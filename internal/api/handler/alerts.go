package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/albapepper/tennis-alerts/internal/api/respond"
	"github.com/albapepper/tennis-alerts/internal/notifications"
	"github.com/albapepper/tennis-alerts/internal/rules"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// StateResponse is the dashboard snapshot.
type StateResponse struct {
	Email           string               `json:"email"`
	Enabled         bool                 `json:"enabled"`
	Rules           []rules.Rule         `json:"rules"`
	History         []store.HistoryEntry `json:"history"`
	IntervalSeconds int                  `json:"interval_seconds"`
	SMTPReady       bool                 `json:"smtp_ready"`
	Running         bool                 `json:"running"`
	RuleLimit       int                  `json:"rule_limit"`
	StoreBackend    string               `json:"store_backend"`
}

// SettingsRequest updates the recipient and the global switch.
type SettingsRequest struct {
	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// GetState returns the recipient, rules and recent history.
// @Summary Dashboard state
// @Description Returns recipient email, rules, the newest 80 history entries, scheduler interval and SMTP readiness.
// @Tags alerts
// @Produce json
// @Success 200 {object} StateResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /state [get]
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.Load(r.Context())
	if err != nil {
		h.storeError(w, "load", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, StateResponse{
		Email:           doc.Email,
		Enabled:         doc.Enabled,
		Rules:           doc.Rules,
		History:         doc.RecentHistory(store.StateHistoryLen),
		IntervalSeconds: int(h.interval.Seconds()),
		SMTPReady:       h.mailer.EmailReady(),
		Running:         h.runner.Running(),
		RuleLimit:       rules.MaxRules,
		StoreBackend:    h.repo.Backend(),
	})
}

// PostSettings sets the recipient email and optionally toggles alerts.
// @Summary Update settings
// @Description Sets the recipient email (empty clears it) and optionally enables or disables all alerts.
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body SettingsRequest true "Settings"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /settings [post]
func (h *Handler) PostSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_EMAIL", "email is not a valid address", err.Error())
		return
	}

	doc, err := h.repo.Update(r.Context(), func(doc *store.Document) error {
		doc.Email = req.Email
		if req.Enabled != nil {
			doc.Enabled = *req.Enabled
		}
		return nil
	})
	if err != nil {
		h.storeError(w, "settings", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"email":   doc.Email,
		"enabled": doc.Enabled,
	})
}

// PostRunNow triggers a manual run. A run already in progress yields
// ok=false, not an error status.
// @Summary Run now
// @Description Runs the alert pipeline immediately unless a run is already in progress.
// @Tags alerts
// @Produce json
// @Success 200 {object} notifications.RunResult
// @Router /run-now [post]
func (h *Handler) PostRunNow(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort a run that may already have delivered.
	res := h.runner.Run(context.WithoutCancel(r.Context()), notifications.TriggerManual)
	respond.WriteJSONObject(w, http.StatusOK, res)
}

// PostTestEmail sends a test message to the configured recipient.
// @Summary Send test email
// @Description Sends a fixed test message to the recipient email through SMTP.
// @Tags alerts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /test-email [post]
func (h *Handler) PostTestEmail(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.Load(r.Context())
	if err != nil {
		h.storeError(w, "load", err)
		return
	}
	if doc.Email == "" {
		respond.WriteError(w, http.StatusBadRequest, "NO_RECIPIENT", "Set a recipient email first")
		return
	}
	if !h.mailer.EmailReady() {
		respond.WriteError(w, http.StatusServiceUnavailable, "SMTP_NOT_CONFIGURED", "SMTP is not configured")
		return
	}

	sendErr := h.mailer.SendTest(r.Context(), doc.Email)
	level, msg := store.LevelInfo, "Test email sent"
	if sendErr != nil {
		level, msg = store.LevelError, "Test email failed"
		h.logger.Warn("Test email failed", "error", sendErr)
	}
	if _, err := h.repo.Update(r.Context(), func(d *store.Document) error {
		details := map[string]interface{}{"to": doc.Email}
		if sendErr != nil {
			details["error"] = sendErr.Error()
		}
		d.AddHistory(h.now(), level, msg, details)
		return nil
	}); err != nil {
		h.logger.Error("Failed to record test email history", "error", err)
	}

	if sendErr != nil {
		respond.WriteErrorDetail(w, http.StatusBadGateway, "DELIVERY_FAILED", msg, sendErr.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"ok": true, "to": doc.Email})
}

// PostHistoryClear empties the history log.
// @Summary Clear history
// @Description Removes every history entry. Rules, state and the dedup table are untouched.
// @Tags alerts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /history/clear [post]
func (h *Handler) PostHistoryClear(w http.ResponseWriter, r *http.Request) {
	if _, err := h.repo.Update(r.Context(), func(doc *store.Document) error {
		doc.History = []store.HistoryEntry{}
		return nil
	}); err != nil {
		h.storeError(w, "history_clear", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"ok": true})
}
