package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/albapepper/tennis-alerts/internal/match"
)

var (
	// ErrTooManyRules is returned when adding a rule would exceed MaxRules.
	ErrTooManyRules = fmt.Errorf("rule limit reached (max %d)", MaxRules)
	// ErrNotFound is returned when a rule id does not exist.
	ErrNotFound = errors.New("rule not found")
)

var offsetRe = regexp.MustCompile(`^([+-])(\d{1,2}):?(\d{2})$`)

// ValidationError describes why a submitted rule was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a rule validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Normalize validates a raw rule and returns its canonical form. Primary
// enums (event type, tour, round mode) and per-type required fields fail
// outright; every other enumerated field falls back to a safe default.
func Normalize(raw Rule, now time.Time) (Rule, error) {
	r := raw

	// 1. Event type
	r.EventType = EventType(lower(string(raw.EventType)))
	if !isEventType(r.EventType) {
		return Rule{}, invalid("event_type", "unknown event_type %q", raw.EventType)
	}

	// 2. Primary enums
	r.Tour = lower(raw.Tour)
	if r.Tour == "" {
		r.Tour = TourBoth
	}
	if !contains(Tours, r.Tour) {
		return Rule{}, invalid("tour", "unknown tour %q (want atp, wta or both)", raw.Tour)
	}
	r.RoundMode = lower(raw.RoundMode)
	if r.RoundMode == "" {
		r.RoundMode = RoundAny
	}
	if !contains(RoundModes, r.RoundMode) {
		return Rule{}, invalid("round_mode", "unknown round_mode %q (want any, min or exact)", raw.RoundMode)
	}

	// 3. Soft enums
	r.ConditionGroup = softEnum(raw.ConditionGroup, ConditionGroups, GroupAll)
	r.Severity = softEnum(raw.Severity, Severities, SeverityNormal)

	// 4. Channels
	r.Channels = filterSet(raw.Channels, Channels)
	if len(r.Channels) == 0 {
		r.Channels = []string{ChannelEmail}
	}

	// 5. Lists and names
	r.Name = strings.TrimSpace(raw.Name)
	if r.Name == "" {
		r.Name = strings.ReplaceAll(string(r.EventType), "_", " ") + " " + DefaultNameSuffix
	}
	r.Name = truncateRunes(r.Name, MaxNameLength)
	r.Categories = lowerList(raw.Categories)
	r.Tournaments = lowerList(raw.Tournaments)
	r.Players = lowerList(raw.Players)
	r.TrackedPlayer = lower(raw.TrackedPlayer)
	r.Conditions = normalizeConditions(raw.Conditions)
	r.Params = normalizeParams(raw.Params)

	// 6. Round value
	r.RoundValue = strings.ToUpper(strings.TrimSpace(raw.RoundValue))
	if r.RoundMode != RoundAny {
		if r.RoundValue == "" {
			return Rule{}, invalid("round_value", "round_value is required when round_mode is %s", r.RoundMode)
		}
		if label := match.RoundLabel(r.RoundValue); match.RoundRank(label) >= 0 {
			r.RoundValue = label
		} else {
			return Rule{}, invalid("round_value", "unknown round_value %q", raw.RoundValue)
		}
	}

	// 7. Per-type required fields
	if err := checkRequired(r); err != nil {
		return Rule{}, err
	}

	// 8. Quiet hours and cooldown
	r.QuietHours = QuietHours{
		Enabled:        raw.QuietHours.Enabled,
		StartHour:      clamp(raw.QuietHours.StartHour, 0, 23),
		EndHour:        clamp(raw.QuietHours.EndHour, 0, 23),
		TimezoneOffset: NormalizeOffset(raw.QuietHours.TimezoneOffset),
	}
	r.CooldownMinutes = clamp(raw.CooldownMinutes, 0, MaxCooldown)

	// 9. Identity
	r.ID = strings.TrimSpace(raw.ID)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	r.UpdatedAt = now.UTC()
	return r, nil
}

func checkRequired(r Rule) error {
	switch r.EventType {
	case PlayerReachesRound, RankingMilestone, TitleMilestone:
		if r.TrackedPlayer == "" {
			return invalid("tracked_player", "tracked_player is required for %s", r.EventType)
		}
	case HeadToHeadBreaker:
		if r.TrackedPlayer == "" || r.Params.RivalPlayer == "" {
			return invalid("tracked_player", "tracked_player and params.rival_player are required for %s", r.EventType)
		}
		if r.TrackedPlayer == r.Params.RivalPlayer {
			return invalid("params.rival_player", "rival_player must differ from tracked_player")
		}
	case SurfaceSpecificResult:
		if r.Params.Surface == "" {
			return invalid("params.surface", "params.surface is required for %s", r.EventType)
		}
	}
	return nil
}

// normalizeParams defaults and clamps every param field independently.
func normalizeParams(p Params) Params {
	out := Params{
		UpsetMinRankGap: clampDefault(p.UpsetMinRankGap, 1, 500, 20),
		WindowHours:     clampDefault(p.WindowHours, 1, 72, 24),
		SetTarget:       clampDefault(p.SetTarget, 1, 5, 1),
		TitleTarget:     clampDefault(p.TitleTarget, 1, 200, 1),
		H2HMinLosses:    clampDefault(p.H2HMinLosses, 1, 20, 3),
		RankingsLimit:   clampDefault(p.RankingsLimit, 10, 500, 200),
		CloseMode:       softEnum(p.CloseMode, CloseModes, CloseDecidingSet),
		Milestone:       softEnum(p.Milestone, Milestones, MilestoneTop10),
		EmitOnFirstSeen: p.EmitOnFirstSeen,
		RivalPlayer:     lower(p.RivalPlayer),
	}

	if s := lower(p.Surface); contains(Surfaces, s) {
		out.Surface = s
	}

	stages := make([]string, 0, len(StageRounds))
	for _, s := range p.StageRounds {
		label := match.RoundLabel(s)
		if contains(StageRounds, label) && !contains(stages, label) {
			stages = append(stages, label)
		}
	}
	if len(stages) == 0 {
		stages = append(stages, StageRounds...)
	}
	out.StageRounds = stages

	out.TargetRound = match.RoundQF
	if t := strings.ToUpper(strings.TrimSpace(p.TargetRound)); t == match.RoundTitle {
		out.TargetRound = t
	} else if label := match.RoundLabel(t); t != "" && match.RoundRank(label) >= 0 {
		out.TargetRound = label
	}
	return out
}

func normalizeConditions(in []Condition) []Condition {
	out := make([]Condition, 0, MaxConditions)
	for _, c := range in {
		if len(out) == MaxConditions {
			break
		}
		c.Field = lower(c.Field)
		c.Operator = lower(c.Operator)
		c.Value = strings.TrimSpace(c.Value)
		if !contains(ConditionFields, c.Field) || !contains(Operators, c.Operator) || c.Value == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NormalizeOffset canonicalizes a "±HH:MM" offset. Invalid input yields
// DefaultTZOffset.
func NormalizeOffset(s string) string {
	minutes, ok := ParseOffset(s)
	if !ok {
		return DefaultTZOffset
	}
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}

// ParseOffset parses a "±HH:MM" (or "±HHMM") offset into signed minutes.
// Offsets beyond ±14:00 are rejected.
func ParseOffset(s string) (int, bool) {
	m := offsetRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[2])
	mm, _ := strconv.Atoi(m[3])
	if mm >= 60 {
		return 0, false
	}
	total := h*60 + mm
	if total > 14*60 {
		return 0, false
	}
	if m[1] == "-" {
		total = -total
	}
	return total, true
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func isEventType(t EventType) bool {
	for _, et := range EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func softEnum(v string, set []string, fallback string) string {
	if v = lower(v); contains(set, v) {
		return v
	}
	return fallback
}

func filterSet(in, allowed []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = lower(v)
		if contains(allowed, v) && !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func lowerList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = lower(v); v != "" && !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampDefault(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	return clamp(v, lo, hi)
}
