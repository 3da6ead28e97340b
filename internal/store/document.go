// Package store persists the single JSON document that holds every piece of
// durable alert state: recipient, rules, the dedup table, per-rule runtime
// state and the bounded history log.
//
// The document lives behind a Backend (file or Postgres). Repository
// serializes every load-modify-save with one process-wide mutex.
package store

import (
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/albapepper/tennis-alerts/internal/rules"
)

// --------------------------------------------------------------------------
// Limits
// --------------------------------------------------------------------------

const (
	MaxSentEvents   = 5000
	MaxHistory      = 300
	StateHistoryLen = 80
	LiveSeenCap     = 1500
	LiveSeenKeep    = 1000
)

// History levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// HistoryEntry is one line of the operator-visible run log.
type HistoryEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RankingSnapshot is the last known ranking data for one player.
type RankingSnapshot struct {
	Rank       *int `json:"rank"`
	CareerHigh *int `json:"career_high"`
	Titles     *int `json:"titles"`
}

// RuleState is the private runtime state of one rule. Which maps are used
// depends on the rule's event type.
type RuleState struct {
	LiveSeen     map[string]string          `json:"live_seen,omitempty"`
	SetProgress  map[string]int             `json:"set_progress,omitempty"`
	RankingState map[string]RankingSnapshot `json:"ranking_state,omitempty"`
	LastSentAt   *time.Time                 `json:"last_sent_at,omitempty"`
}

// Document is the whole persisted store.
type Document struct {
	Email      string                `json:"email"`
	Enabled    bool                  `json:"enabled"`
	Rules      []rules.Rule          `json:"rules"`
	SentEvents map[string]string     `json:"sent_events"`
	RuleState  map[string]*RuleState `json:"rule_state"`
	History    []HistoryEntry        `json:"history"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Default returns an empty, enabled store.
func Default() *Document {
	return &Document{
		Enabled:    true,
		Rules:      []rules.Rule{},
		SentEvents: map[string]string{},
		RuleState:  map[string]*RuleState{},
		History:    []HistoryEntry{},
	}
}

// Decode parses a stored document. Unknown fields are ignored and missing
// ones keep their Default values.
func Decode(data []byte) (*Document, error) {
	doc := Default()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	doc.fill()
	return doc, nil
}

// Encode serializes the document.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func (d *Document) fill() {
	if d.Rules == nil {
		d.Rules = []rules.Rule{}
	}
	if d.SentEvents == nil {
		d.SentEvents = map[string]string{}
	}
	if d.RuleState == nil {
		d.RuleState = map[string]*RuleState{}
	}
	if d.History == nil {
		d.History = []HistoryEntry{}
	}
	for id, st := range d.RuleState {
		if st == nil {
			delete(d.RuleState, id)
		}
	}
}

// --------------------------------------------------------------------------
// History
// --------------------------------------------------------------------------

// AddHistory prepends an entry and enforces the history cap.
func (d *Document) AddHistory(now time.Time, level, message string, details map[string]interface{}) {
	entry := HistoryEntry{Timestamp: now.UTC(), Level: level, Message: message, Details: details}
	d.History = append([]HistoryEntry{entry}, d.History...)
	if len(d.History) > MaxHistory {
		d.History = d.History[:MaxHistory]
	}
}

// PrependHistory adds entries (newest first) ahead of the existing log.
func (d *Document) PrependHistory(entries []HistoryEntry) {
	if len(entries) == 0 {
		return
	}
	merged := make([]HistoryEntry, 0, len(entries)+len(d.History))
	merged = append(merged, entries...)
	merged = append(merged, d.History...)
	if len(merged) > MaxHistory {
		merged = merged[:MaxHistory]
	}
	d.History = merged
}

// RecentHistory returns up to n newest entries.
func (d *Document) RecentHistory(n int) []HistoryEntry {
	if n > len(d.History) {
		n = len(d.History)
	}
	return d.History[:n]
}

// --------------------------------------------------------------------------
// Rules
// --------------------------------------------------------------------------

// RuleIndex returns the position of the rule with id, or -1.
func (d *Document) RuleIndex(id string) int {
	for i, r := range d.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// EnabledRules returns the rules that should be evaluated.
func (d *Document) EnabledRules() []rules.Rule {
	out := make([]rules.Rule, 0, len(d.Rules))
	for _, r := range d.Rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// AddRule appends a rule, enforcing the global rule cap.
func (d *Document) AddRule(r rules.Rule) error {
	if len(d.Rules) >= rules.MaxRules {
		return rules.ErrTooManyRules
	}
	d.Rules = append(d.Rules, r)
	return nil
}

// ReplaceRule updates a rule in place, keeping its original created_at.
func (d *Document) ReplaceRule(r rules.Rule) error {
	i := d.RuleIndex(r.ID)
	if i < 0 {
		return rules.ErrNotFound
	}
	r.CreatedAt = d.Rules[i].CreatedAt
	d.Rules[i] = r
	return nil
}

// DeleteRule removes a rule and its runtime state.
func (d *Document) DeleteRule(id string) error {
	i := d.RuleIndex(id)
	if i < 0 {
		return rules.ErrNotFound
	}
	d.Rules = append(d.Rules[:i], d.Rules[i+1:]...)
	delete(d.RuleState, id)
	return nil
}

// StateFor returns the runtime state of a rule, creating it if needed.
func (d *Document) StateFor(ruleID string) *RuleState {
	st, ok := d.RuleState[ruleID]
	if !ok || st == nil {
		st = &RuleState{}
		d.RuleState[ruleID] = st
	}
	return st
}

// --------------------------------------------------------------------------
// Dedup table
// --------------------------------------------------------------------------

// IsSent reports whether an event id was already delivered.
func (d *Document) IsSent(eventID string) bool {
	_, ok := d.SentEvents[eventID]
	return ok
}

// MarkSent records event ids as delivered at now.
func (d *Document) MarkSent(now time.Time, eventIDs ...string) {
	ts := now.UTC().Format(time.RFC3339)
	for _, id := range eventIDs {
		d.SentEvents[id] = ts
	}
}

// CompactSentEvents keeps only the max most recent dedup entries. Entries
// with unparseable timestamps are treated as oldest.
func (d *Document) CompactSentEvents(max int) int {
	if len(d.SentEvents) <= max {
		return 0
	}
	type kv struct {
		id string
		at time.Time
	}
	all := make([]kv, 0, len(d.SentEvents))
	for id, ts := range d.SentEvents {
		at, _ := time.Parse(time.RFC3339, ts)
		all = append(all, kv{id, at})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].at.Equal(all[j].at) {
			return all[i].id > all[j].id
		}
		return all[i].at.After(all[j].at)
	})
	removed := 0
	for _, e := range all[max:] {
		delete(d.SentEvents, e.id)
		removed++
	}
	return removed
}

// --------------------------------------------------------------------------
// Rule state helpers
// --------------------------------------------------------------------------

// Clone returns a deep copy. Detection mutates a clone so a failed delivery
// can discard it.
func (s *RuleState) Clone() *RuleState {
	out := &RuleState{}
	if s == nil {
		return out
	}
	if s.LiveSeen != nil {
		out.LiveSeen = make(map[string]string, len(s.LiveSeen))
		for k, v := range s.LiveSeen {
			out.LiveSeen[k] = v
		}
	}
	if s.SetProgress != nil {
		out.SetProgress = make(map[string]int, len(s.SetProgress))
		for k, v := range s.SetProgress {
			out.SetProgress[k] = v
		}
	}
	if s.RankingState != nil {
		out.RankingState = make(map[string]RankingSnapshot, len(s.RankingState))
		for k, v := range s.RankingState {
			out.RankingState[k] = v
		}
	}
	if s.LastSentAt != nil {
		t := *s.LastSentAt
		out.LastSentAt = &t
	}
	return out
}

// MarkLiveSeen records a live match id. When the map grows past
// LiveSeenCap it is trimmed to LiveSeenKeep ids, keeping the lexically
// greatest ids.
func (s *RuleState) MarkLiveSeen(matchID string, now time.Time) {
	if s.LiveSeen == nil {
		s.LiveSeen = map[string]string{}
	}
	s.LiveSeen[matchID] = now.UTC().Format(time.RFC3339)
	if len(s.LiveSeen) <= LiveSeenCap {
		return
	}
	ids := make([]string, 0, len(s.LiveSeen))
	for id := range s.LiveSeen {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	for _, id := range ids[LiveSeenKeep:] {
		delete(s.LiveSeen, id)
	}
}

// SeenLive reports whether a live match id was already recorded.
func (s *RuleState) SeenLive(matchID string) bool {
	_, ok := s.LiveSeen[matchID]
	return ok
}

// SetCount returns the highest completed-set count recorded for a match.
func (s *RuleState) SetCount(matchID string) int {
	return s.SetProgress[matchID]
}

// RecordSets raises the completed-set count for a match; it never lowers it.
func (s *RuleState) RecordSets(matchID string, n int) {
	if s.SetProgress == nil {
		s.SetProgress = map[string]int{}
	}
	if n > s.SetProgress[matchID] {
		s.SetProgress[matchID] = n
	}
}

// Ranking returns the last known ranking snapshot for a player key.
func (s *RuleState) Ranking(key string) (RankingSnapshot, bool) {
	snap, ok := s.RankingState[key]
	return snap, ok
}

// RecordRanking stores the latest ranking snapshot for a player key.
func (s *RuleState) RecordRanking(key string, snap RankingSnapshot) {
	if s.RankingState == nil {
		s.RankingState = map[string]RankingSnapshot{}
	}
	s.RankingState[key] = snap
}
