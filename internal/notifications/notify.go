// Package notifications turns polled tennis data into delivered alerts.
//
// Pipeline per run: fetch match bundle → for each enabled rule: gate (quiet
// hours, cooldown) → detect events → drop already-sent events → dispatch to
// channels → record state and history → persist.
package notifications

import (
	"context"
	"strconv"
	"strings"

	"github.com/albapepper/tennis-alerts/internal/match"
	"github.com/albapepper/tennis-alerts/internal/rules"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	htmlEventLimit = 25
	runBusyMessage = "run already in progress"
)

// Run triggers.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerNotify   = "notify"
	TriggerCLI      = "cli"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Event is a detected notification candidate. Only EventID is persisted.
type Event struct {
	EventID       string          `json:"event_id"`
	Kind          rules.EventType `json:"kind"`
	MatchID       string          `json:"match_id,omitempty"`
	Tour          string          `json:"tour,omitempty"`
	Tournament    string          `json:"tournament,omitempty"`
	Round         string          `json:"round,omitempty"`
	Title         string          `json:"title"`
	Detail        string          `json:"detail,omitempty"`
	Player1       string          `json:"player1,omitempty"`
	Player2       string          `json:"player2,omitempty"`
	ScheduledTime string          `json:"scheduled_time,omitempty"`
}

// RankingsSource fetches a tour ranking table.
type RankingsSource interface {
	Rankings(ctx context.Context, tour string, limit int) []match.RankingEntry
}

// Source is the upstream data the coordinator polls.
type Source interface {
	RankingsSource
	FetchBundle(ctx context.Context) match.Bundle
}

// Inputs is everything detection reads during one run: the match bundle,
// fetched once, and ranking tables fetched lazily and memoized for the run.
type Inputs struct {
	Bundle match.Bundle

	ctx      context.Context
	rankings RankingsSource
	memo     map[string][]match.RankingEntry
}

// NewInputs creates run inputs. src may be nil when no rule needs rankings.
func NewInputs(ctx context.Context, bundle match.Bundle, src RankingsSource) *Inputs {
	return &Inputs{
		Bundle:   bundle,
		ctx:      ctx,
		rankings: src,
		memo:     make(map[string][]match.RankingEntry),
	}
}

// Rankings returns the ranking table for tour, fetching it at most once per
// run for each (tour, limit).
func (in *Inputs) Rankings(tour string, limit int) []match.RankingEntry {
	if in.rankings == nil {
		return nil
	}
	key := strings.ToLower(tour) + "|" + strconv.Itoa(limit)
	if rows, ok := in.memo[key]; ok {
		return rows
	}
	rows := in.rankings.Rankings(in.ctx, strings.ToLower(tour), limit)
	in.memo[key] = rows
	return rows
}
