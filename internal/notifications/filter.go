package notifications

import (
	"strconv"
	"strings"

	"github.com/albapepper/tennis-alerts/internal/match"
	"github.com/albapepper/tennis-alerts/internal/rules"
)

// BaseMatch applies the shared match filter: tour, categories, tournament
// and player substrings, round mode, then the extra conditions.
func BaseMatch(r rules.Rule, m match.Canonical) bool {
	if !tourMatches(r.Tour, m.Tour) {
		return false
	}
	if len(r.Categories) > 0 && !containsFold(r.Categories, m.Category) {
		return false
	}
	if len(r.Tournaments) > 0 && !anySubstring(r.Tournaments, m.Tournament) {
		return false
	}
	if players := r.Interested(); len(players) > 0 && !hasAnyPlayer(m, players) {
		return false
	}
	if !roundMatches(r.RoundMode, r.RoundValue, m) {
		return false
	}
	return conditionsMatch(r.ConditionGroup, r.Conditions, m)
}

func tourMatches(ruleTour, matchTour string) bool {
	if ruleTour == "" || ruleTour == rules.TourBoth {
		return true
	}
	return strings.EqualFold(ruleTour, matchTour)
}

func roundMatches(mode, value string, m match.Canonical) bool {
	switch mode {
	case rules.RoundMin:
		target := match.RoundRank(value)
		return target >= 0 && m.RoundRank >= target
	case rules.RoundExact:
		return m.RoundLabel == value
	}
	return true
}

func conditionsMatch(group string, conds []rules.Condition, m match.Canonical) bool {
	if len(conds) == 0 {
		return true
	}
	for _, c := range conds {
		ok := evalCondition(c, m)
		if group == rules.GroupAny && ok {
			return true
		}
		if group != rules.GroupAny && !ok {
			return false
		}
	}
	return group != rules.GroupAny
}

// evalCondition tests one predicate. Numeric operators fail closed when
// either side does not parse.
func evalCondition(c rules.Condition, m match.Canonical) bool {
	var values []string
	switch c.Field {
	case rules.FieldTournament:
		values = []string{m.Tournament}
	case rules.FieldPlayer:
		values = []string{m.Player1.Name, m.Player2.Name}
	case rules.FieldCategory:
		values = []string{m.Category}
	case rules.FieldSurface:
		values = []string{m.Surface}
	case rules.FieldRoundRank:
		values = []string{strconv.Itoa(m.RoundRank)}
	default:
		return false
	}

	for _, v := range values {
		if compare(c.Field, c.Operator, v, c.Value) {
			return true
		}
	}
	return false
}

func compare(field, op, actual, expected string) bool {
	switch op {
	case rules.OpContains:
		return expected != "" && strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case rules.OpEquals:
		return strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(expected))
	case rules.OpGTE, rules.OpLTE:
		a, okA := parseNumber(field, actual)
		e, okE := parseNumber(field, expected)
		if !okA || !okE {
			return false
		}
		if op == rules.OpGTE {
			return a >= e
		}
		return a <= e
	}
	return false
}

// parseNumber parses a numeric operand. round_rank also accepts a round label
// such as "QF".
func parseNumber(field, s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if field == rules.FieldRoundRank {
		if r := match.RoundRank(strings.ToUpper(s)); r >= 0 {
			return float64(r), true
		}
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Name helpers
// --------------------------------------------------------------------------

// nameMatches reports whether a player name contains the lower-cased query.
func nameMatches(name, query string) bool {
	return query != "" && name != "" && strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func hasAnyPlayer(m match.Canonical, players []string) bool {
	for _, p := range players {
		if nameMatches(m.Player1.Name, p) || nameMatches(m.Player2.Name, p) {
			return true
		}
	}
	return false
}

func anySubstring(needles []string, haystack string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if n != "" && strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
