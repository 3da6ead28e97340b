package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/albapepper/tennis-alerts/internal/api/respond"
	"github.com/albapepper/tennis-alerts/internal/cache"
	"github.com/albapepper/tennis-alerts/internal/rules"
)

const (
	minQueryLen  = 2
	playerLimit  = 15
	maxQueryLen  = 60
	optionsCache = "options"
)

// GetOptions returns the closed enumerations plus tournament and player
// autocomplete for the rule editor.
// @Summary Rule editor options
// @Description Returns event types, surfaces, milestones, stage rounds, channels and severities, plus tournament names and (for queries of 2+ characters) matching player names. Cached for 10 minutes with ETag support.
// @Tags alerts
// @Produce json
// @Param tour query string false "Tour filter" Enums(atp, wta, both)
// @Param query query string false "Player name prefix"
// @Success 200 {object} map[string]interface{}
// @Success 304 "Not Modified"
// @Failure 400 {object} respond.ErrorResponse
// @Router /options [get]
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	tour := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tour")))
	if tour == "" {
		tour = rules.TourBoth
	}
	if tour != rules.TourATP && tour != rules.TourWTA && tour != rules.TourBoth {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TOUR", "tour must be atp, wta or both")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if utf8.RuneCountInString(query) > maxQueryLen {
		query = string([]rune(query)[:maxQueryLen])
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", optionsCache, tour, strings.ToLower(query))
	ttl := cache.TTLOptions

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	payload := rules.Options()
	tournaments, players := h.autocomplete(r, tour, query)
	payload["tournaments"] = tournaments
	payload["players"] = players

	data, err := json.Marshal(payload)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode options")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// autocomplete queries each selected tour. Upstream failures come back as
// empty lists.
func (h *Handler) autocomplete(r *http.Request, tour, query string) (tournaments, players []string) {
	tournaments, players = []string{}, []string{}
	if h.lookup == nil {
		return
	}
	tours := []string{rules.TourATP, rules.TourWTA}
	if tour != rules.TourBoth {
		tours = []string{tour}
	}
	for _, t := range tours {
		tournaments = append(tournaments, h.lookup.Tournaments(r.Context(), t)...)
		if utf8.RuneCountInString(query) >= minQueryLen {
			players = append(players, h.lookup.SearchPlayers(r.Context(), t, query, playerLimit)...)
		}
	}
	return dedupSorted(tournaments), dedupSorted(players)
}

func dedupSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup || s == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
