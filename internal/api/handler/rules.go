package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/tennis-alerts/internal/api/respond"
	"github.com/albapepper/tennis-alerts/internal/rules"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// RuleResponse wraps a saved rule.
type RuleResponse struct {
	OK   bool       `json:"ok"`
	Rule rules.Rule `json:"rule"`
}

// decodeRule reads a rule body over the editor defaults and validates it.
func (h *Handler) decodeRule(w http.ResponseWriter, r *http.Request, id string) (rules.Rule, bool) {
	raw := rules.New()
	if err := respond.DecodeJSON(r, &raw); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return rules.Rule{}, false
	}
	// Identity comes from the URL and the store, never the body.
	raw.ID = id
	raw.CreatedAt = time.Time{}
	rule, err := rules.Normalize(raw, h.now())
	if err != nil {
		h.writeRuleError(w, err)
		return rules.Rule{}, false
	}
	return rule, true
}

func (h *Handler) writeRuleError(w http.ResponseWriter, err error) {
	var ve *rules.ValidationError
	switch {
	case errors.As(err, &ve):
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_RULE", ve.Message, ve.Field)
	case errors.Is(err, rules.ErrTooManyRules):
		respond.WriteError(w, http.StatusBadRequest, "RULE_LIMIT", err.Error())
	case errors.Is(err, rules.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "RULE_NOT_FOUND", err.Error())
	default:
		h.storeError(w, "rules", err)
	}
}

// CreateRule validates and appends a rule.
// @Summary Create rule
// @Description Validates a rule, assigns an id and stores it. At most 200 rules are kept.
// @Tags rules
// @Accept json
// @Produce json
// @Param body body rules.Rule true "Rule"
// @Success 201 {object} RuleResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /rules [post]
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decodeRule(w, r, "")
	if !ok {
		return
	}
	if _, err := h.repo.Update(r.Context(), func(doc *store.Document) error {
		return doc.AddRule(rule)
	}); err != nil {
		h.writeRuleError(w, err)
		return
	}
	h.logger.Info("Rule created", "rule_id", rule.ID, "event_type", rule.EventType)
	respond.WriteJSONObject(w, http.StatusCreated, RuleResponse{OK: true, Rule: rule})
}

// UpdateRule replaces an existing rule, keeping its id and creation time.
// @Summary Update rule
// @Description Validates and replaces the rule with the given id.
// @Tags rules
// @Accept json
// @Produce json
// @Param id path string true "Rule id"
// @Param body body rules.Rule true "Rule"
// @Success 200 {object} RuleResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id} [put]
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, ok := h.decodeRule(w, r, id)
	if !ok {
		return
	}
	var saved rules.Rule
	if _, err := h.repo.Update(r.Context(), func(doc *store.Document) error {
		if err := doc.ReplaceRule(rule); err != nil {
			return err
		}
		saved = doc.Rules[doc.RuleIndex(id)]
		return nil
	}); err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, RuleResponse{OK: true, Rule: saved})
}

// DeleteRule removes a rule and its runtime state.
// @Summary Delete rule
// @Tags rules
// @Produce json
// @Param id path string true "Rule id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id} [delete]
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.repo.Update(r.Context(), func(doc *store.Document) error {
		return doc.DeleteRule(id)
	}); err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
}
