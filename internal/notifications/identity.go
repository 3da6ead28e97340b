package notifications

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/albapepper/tennis-alerts/internal/match"
	"github.com/albapepper/tennis-alerts/internal/rules"
)

// EventID is the sole dedup identity of an event: hex sha1 of
// "rule_id|kind|key". Key formats per kind:
//
//	match-based kinds     match_id|tournament|round_label
//	set_completed         match_id|tournament|round_label|sets=N
//	player_reaches_round  match_id|tournament|reached_label|player
//	ranking_milestone     player_key|milestone|rank
//	title_milestone       player_key|title|titles
//	head_to_head_breaker  tracked|rival|match_id
//
// player_key is "tour:lowercase-name".
func EventID(ruleID string, kind rules.EventType, key string) string {
	sum := sha1.Sum([]byte(ruleID + "|" + string(kind) + "|" + key))
	return hex.EncodeToString(sum[:])
}

// MatchKey is the key for match-based kinds.
func MatchKey(m match.Canonical) string {
	return strings.Join([]string{m.ID, m.Tournament, m.RoundLabel}, "|")
}

// SetKey is the set_completed key.
func SetKey(m match.Canonical, sets int) string {
	return MatchKey(m) + "|sets=" + strconv.Itoa(sets)
}

// ReachedKey is the player_reaches_round key.
func ReachedKey(m match.Canonical, reached, player string) string {
	return strings.Join([]string{m.ID, m.Tournament, reached, strings.ToLower(player)}, "|")
}

// RankingKey is the ranking_milestone key.
func RankingKey(playerKey, milestone string, rank int) string {
	return playerKey + "|" + milestone + "|" + strconv.Itoa(rank)
}

// TitleKey is the title_milestone key.
func TitleKey(playerKey string, titles int) string {
	return playerKey + "|title|" + strconv.Itoa(titles)
}

// H2HKey is the head_to_head_breaker key.
func H2HKey(tracked, rival, matchID string) string {
	return strings.ToLower(tracked) + "|" + strings.ToLower(rival) + "|" + matchID
}
