package match

import "strings"

// RankingEntry is one row of a tour ranking table.
type RankingEntry struct {
	Tour       string `json:"tour"`
	Name       string `json:"name"`
	Rank       *int   `json:"rank,omitempty"`
	CareerHigh *int   `json:"career_high,omitempty"`
	Titles     *int   `json:"titles,omitempty"`
	Country    string `json:"country,omitempty"`
}

// PlayerKey identifies a player across runs as "tour:lowercase-name".
func PlayerKey(tour, name string) string {
	return strings.ToLower(tour) + ":" + strings.ToLower(strings.TrimSpace(name))
}

// Key returns the entry's PlayerKey.
func (e RankingEntry) Key() string {
	return PlayerKey(e.Tour, e.Name)
}

// NormalizeRanking maps one raw ranking row. Player data may be flat or nested
// under "player". Rows without a name come back with an empty Name.
func NormalizeRanking(raw map[string]interface{}, tour string) RankingEntry {
	e := RankingEntry{Tour: strings.ToUpper(tour)}
	src := raw
	if obj, ok := raw["player"].(map[string]interface{}); ok {
		src = obj
		e.Name = firstString(obj, "name", "full_name", "player_name")
	} else {
		e.Name = firstString(raw, "name", "player", "player_name", "full_name")
	}

	e.Rank = intPtr(firstValue(raw, "rank", "ranking", "position"))
	e.CareerHigh = intPtr(firstValue(src, "career_high", "career_high_rank", "best_rank"))
	if e.CareerHigh == nil {
		e.CareerHigh = intPtr(firstValue(raw, "career_high", "career_high_rank", "best_rank"))
	}
	if n, ok := ExtractInt(firstValue(src, "titles", "career_titles", "titles_won")); ok && n >= 0 {
		e.Titles = &n
	} else if n, ok := ExtractInt(firstValue(raw, "titles", "career_titles", "titles_won")); ok && n >= 0 {
		e.Titles = &n
	}
	e.Country = firstString(src, "country", "nationality", "country_code")
	return e
}

// NormalizeRankings maps a ranking table, dropping rows without a name.
func NormalizeRankings(raws []map[string]interface{}, tour string) []RankingEntry {
	out := make([]RankingEntry, 0, len(raws))
	for _, r := range raws {
		e := NormalizeRanking(r, tour)
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out
}

// Names extracts display names from autocomplete payloads, skipping blanks and
// duplicates.
func Names(raws []map[string]interface{}, keys ...string) []string {
	if len(keys) == 0 {
		keys = []string{"name", "full_name", "player_name", "tournament", "title"}
	}
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, r := range raws {
		n := firstString(r, keys...)
		if obj, ok := r["player"].(map[string]interface{}); ok && n == "" {
			n = firstString(obj, keys...)
		}
		if n == "" {
			continue
		}
		k := strings.ToLower(n)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
