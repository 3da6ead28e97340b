package notifications

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/tennis-alerts/internal/match"
	"github.com/albapepper/tennis-alerts/internal/rules"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// Detect runs the rule's detection algorithm. state is the rule's runtime
// state and may be mutated (live_seen, set_progress, ranking_state); callers
// pass a clone when the mutation must be discardable. The result contains
// no duplicate event ids.
func Detect(r rules.Rule, in *Inputs, state *store.RuleState, now time.Time) []Event {
	if state == nil {
		state = &store.RuleState{}
	}
	b := in.Bundle
	var events []Event

	switch spec := r.Spec().(type) {
	case rules.UpcomingMatchSpec:
		for _, m := range b.Upcoming {
			if BaseMatch(r, m) {
				events = append(events, matchEvent(r, m, "Upcoming: "+vs(m), scheduleDetail(m)))
			}
		}

	case rules.MatchResultSpec:
		for _, m := range finished(b.Recent) {
			if BaseMatch(r, m) {
				events = append(events, matchEvent(r, m, resultTitle(m), resultDetail(m)))
			}
		}

	case rules.TournamentCompletedSpec:
		for _, m := range finished(b.Recent) {
			if m.RoundLabel == match.RoundF && BaseMatch(r, m) {
				title := fmt.Sprintf("%s champion: %s", m.Tournament, orUnknown(m.WinnerName))
				events = append(events, matchEvent(r, m, title, resultDetail(m)))
			}
		}

	case rules.PlayerReachesRoundSpec:
		events = detectReachesRound(r, spec, b)

	case rules.LiveMatchStartsSpec:
		for _, m := range b.Live {
			if m.ID == "" || !BaseMatch(r, m) || state.SeenLive(m.ID) {
				continue
			}
			state.MarkLiveSeen(m.ID, now)
			events = append(events, matchEvent(r, m, "Now live: "+vs(m), roundDetail(m)))
		}

	case rules.SetCompletedSpec:
		events = detectSetCompleted(r, spec, b, state)

	case rules.UpsetAlertSpec:
		for _, m := range finished(b.Recent) {
			if !BaseMatch(r, m) {
				continue
			}
			w, wok := m.Winner()
			l, lok := m.Loser()
			if !wok || !lok || w.Rank == nil || l.Rank == nil {
				continue
			}
			if gap := *w.Rank - *l.Rank; gap >= spec.MinRankGap {
				title := fmt.Sprintf("Upset: #%d %s def. #%d %s", *w.Rank, w.Name, *l.Rank, l.Name)
				events = append(events, matchEvent(r, m, title, fmt.Sprintf("Rank gap %d. %s", gap, resultDetail(m))))
			}
		}

	case rules.CloseMatchSpec:
		for _, m := range finished(b.Recent) {
			if BaseMatch(r, m) && isClose(spec.Mode, m) {
				events = append(events, matchEvent(r, m, "Close match: "+resultTitle(m), resultDetail(m)))
			}
		}

	case rules.SurfaceResultSpec:
		for _, m := range finished(b.Recent) {
			if spec.Surface != "" && !strings.EqualFold(m.Surface, spec.Surface) {
				continue
			}
			if BaseMatch(r, m) {
				title := fmt.Sprintf("%s court result: %s", titleCase(m.Surface), resultTitle(m))
				events = append(events, matchEvent(r, m, title, resultDetail(m)))
			}
		}

	case rules.StageReminderSpec:
		for _, m := range concat(b.Upcoming, b.Live) {
			if containsFold(spec.Stages, m.RoundLabel) && BaseMatch(r, m) {
				title := fmt.Sprintf("%s %s: %s", m.Tournament, m.RoundLabel, vs(m))
				events = append(events, matchEvent(r, m, title, scheduleDetail(m)))
			}
		}

	case rules.TimeWindowSpec:
		for _, m := range b.Upcoming {
			if m.Scheduled.IsZero() {
				continue
			}
			until := m.Scheduled.Sub(now)
			if until < 0 || until > spec.Window || !BaseMatch(r, m) {
				continue
			}
			title := fmt.Sprintf("Starting within %s: %s", formatWindow(until), vs(m))
			events = append(events, matchEvent(r, m, title, scheduleDetail(m)))
		}

	case rules.RankingMilestoneSpec:
		events = detectRankingMilestone(r, spec, in, state)

	case rules.TitleMilestoneSpec:
		events = detectTitleMilestone(r, spec, in, state)

	case rules.HeadToHeadSpec:
		events = detectHeadToHead(r, spec, b)
	}

	return uniqueEvents(events)
}

// --------------------------------------------------------------------------
// Stateful and multi-source detectors
// --------------------------------------------------------------------------

func detectReachesRound(r rules.Rule, spec rules.PlayerReachesRoundSpec, b match.Bundle) []Event {
	var events []Event
	for _, m := range concat(b.Upcoming, b.Recent, b.Live) {
		if !BaseMatch(r, m) {
			continue
		}
		for _, p := range []match.Player{m.Player1, m.Player2} {
			if !anyNameMatches(p.Name, spec.Players) {
				continue
			}
			label, rank := m.RoundLabel, m.RoundRank
			if m.IsFinished() && m.RoundLabel == match.RoundF && m.WinnerName == p.Name {
				label, rank = match.RoundTitle, match.RoundRank(match.RoundTitle)
			}
			if rank < 0 || rank < spec.TargetRank {
				continue
			}
			title := fmt.Sprintf("%s reached %s at %s", p.Name, label, m.Tournament)
			if label == match.RoundTitle {
				title = fmt.Sprintf("%s won %s", p.Name, m.Tournament)
			}
			e := baseEvent(m, r.EventType, title, roundDetail(m))
			e.EventID = EventID(r.ID, r.EventType, ReachedKey(m, label, p.Name))
			events = append(events, e)
		}
	}
	return events
}

func detectSetCompleted(r rules.Rule, spec rules.SetCompletedSpec, b match.Bundle, state *store.RuleState) []Event {
	var events []Event
	for _, m := range concat(b.Live, b.Recent) {
		if m.ID == "" || !BaseMatch(r, m) {
			continue
		}
		n := m.CompletedSets()
		prev := state.SetCount(m.ID)
		if n > prev {
			state.RecordSets(m.ID, n)
		}
		if n <= prev || n < spec.Target {
			continue
		}
		title := fmt.Sprintf("Set %d complete: %s", n, vs(m))
		e := baseEvent(m, r.EventType, title, "Score: "+formatScore(m.Sets()))
		e.EventID = EventID(r.ID, r.EventType, SetKey(m, n))
		events = append(events, e)
	}
	return events
}

// milestoneReached evaluates the ranking milestone predicate. Unknown values
// never reach a milestone.
func milestoneReached(milestone string, rank, careerHigh *int) bool {
	if rank == nil {
		return false
	}
	if milestone == rules.MilestoneCareerHigh {
		return careerHigh != nil && *rank <= *careerHigh
	}
	threshold, ok := rules.MilestoneThresholds[milestone]
	return ok && *rank <= threshold
}

func titlesReached(titles *int, target int) bool {
	return titles != nil && *titles >= target
}

func detectRankingMilestone(r rules.Rule, spec rules.RankingMilestoneSpec, in *Inputs, state *store.RuleState) []Event {
	var events []Event
	for _, entry := range trackedRankings(r.Tour, spec.Players, spec.Limit, in) {
		key := entry.Key()
		prev, had := state.Ranking(key)
		hit := milestoneReached(spec.Milestone, entry.Rank, entry.CareerHigh)
		prevHit := had && milestoneReached(spec.Milestone, prev.Rank, prev.CareerHigh)
		state.RecordRanking(key, snapshot(entry))

		if !hit || prevHit || (!had && !spec.EmitOnFirstSeen) {
			continue
		}
		title := fmt.Sprintf("%s reached %s (rank #%d)", entry.Name, milestoneLabel(spec.Milestone), *entry.Rank)
		events = append(events, Event{
			EventID: EventID(r.ID, r.EventType, RankingKey(key, spec.Milestone, *entry.Rank)),
			Kind:    r.EventType,
			Tour:    entry.Tour,
			Title:   title,
			Detail:  rankingDetail(entry),
			Player1: entry.Name,
		})
	}
	return events
}

func detectTitleMilestone(r rules.Rule, spec rules.TitleMilestoneSpec, in *Inputs, state *store.RuleState) []Event {
	var events []Event
	for _, entry := range trackedRankings(r.Tour, spec.Players, spec.Limit, in) {
		key := entry.Key()
		prev, had := state.Ranking(key)
		hit := titlesReached(entry.Titles, spec.Target)
		prevHit := had && titlesReached(prev.Titles, spec.Target)
		state.RecordRanking(key, snapshot(entry))

		if !hit || prevHit || (!had && !spec.EmitOnFirstSeen) {
			continue
		}
		title := fmt.Sprintf("%s reached %d career titles", entry.Name, *entry.Titles)
		events = append(events, Event{
			EventID: EventID(r.ID, r.EventType, TitleKey(key, *entry.Titles)),
			Kind:    r.EventType,
			Tour:    entry.Tour,
			Title:   title,
			Detail:  rankingDetail(entry),
			Player1: entry.Name,
		})
	}
	return events
}

// detectHeadToHead walks all finished tracked-vs-rival matches in
// chronological order. Each tracked loss extends the streak; a tracked win
// fires when the streak is at least MinLosses and always resets it.
func detectHeadToHead(r rules.Rule, spec rules.HeadToHeadSpec, b match.Bundle) []Event {
	var meetings []match.Canonical
	for _, m := range finished(b.Recent) {
		if !tourMatches(r.Tour, m.Tour) || m.WinnerName == "" {
			continue
		}
		p1, p2 := m.Player1.Name, m.Player2.Name
		if (nameMatches(p1, spec.Tracked) && nameMatches(p2, spec.Rival)) ||
			(nameMatches(p2, spec.Tracked) && nameMatches(p1, spec.Rival)) {
			meetings = append(meetings, m)
		}
	}
	sort.SliceStable(meetings, func(i, j int) bool {
		a, b := meetings[i], meetings[j]
		if !a.Scheduled.Equal(b.Scheduled) {
			return a.Scheduled.Before(b.Scheduled)
		}
		return a.ID < b.ID
	})

	var events []Event
	streak := 0
	for _, m := range meetings {
		if !nameMatches(m.WinnerName, spec.Tracked) {
			streak++
			continue
		}
		if streak >= spec.MinLosses {
			title := fmt.Sprintf("%s broke a %d-match losing streak against %s", m.WinnerName, streak, m.LoserName())
			e := baseEvent(m, r.EventType, title, resultDetail(m))
			e.EventID = EventID(r.ID, r.EventType, H2HKey(spec.Tracked, spec.Rival, m.ID))
			events = append(events, e)
		}
		streak = 0
	}
	return events
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// trackedRankings returns ranking rows for the rule's tours that match any
// of players.
func trackedRankings(tour string, players []string, limit int, in *Inputs) []match.RankingEntry {
	tours := []string{match.TourATP, match.TourWTA}
	switch tour {
	case rules.TourATP:
		tours = []string{match.TourATP}
	case rules.TourWTA:
		tours = []string{match.TourWTA}
	}

	var out []match.RankingEntry
	for _, t := range tours {
		for _, entry := range in.Rankings(t, limit) {
			if anyNameMatches(entry.Name, players) {
				out = append(out, entry)
			}
		}
	}
	return out
}

func snapshot(e match.RankingEntry) store.RankingSnapshot {
	return store.RankingSnapshot{Rank: e.Rank, CareerHigh: e.CareerHigh, Titles: e.Titles}
}

func matchEvent(r rules.Rule, m match.Canonical, title, detail string) Event {
	e := baseEvent(m, r.EventType, title, detail)
	e.EventID = EventID(r.ID, r.EventType, MatchKey(m))
	return e
}

func baseEvent(m match.Canonical, kind rules.EventType, title, detail string) Event {
	return Event{
		Kind:          kind,
		MatchID:       m.ID,
		Tour:          m.Tour,
		Tournament:    m.Tournament,
		Round:         m.RoundLabel,
		Title:         title,
		Detail:        detail,
		Player1:       m.Player1.Name,
		Player2:       m.Player2.Name,
		ScheduledTime: m.ScheduledTime,
	}
}

func isClose(mode string, m match.Canonical) bool {
	switch mode {
	case rules.CloseTiebreak:
		for _, s := range m.Sets() {
			if s.HasTiebreak() {
				return true
			}
		}
		return false
	case rules.CloseThirdOrFifth:
		n := m.CompletedSets()
		return n == 3 || n == 5
	}
	return m.CompletedSets() >= 3
}

func finished(ms []match.Canonical) []match.Canonical {
	out := make([]match.Canonical, 0, len(ms))
	for _, m := range ms {
		if m.IsFinished() {
			out = append(out, m)
		}
	}
	return out
}

func concat(lists ...[]match.Canonical) []match.Canonical {
	var out []match.Canonical
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func uniqueEvents(events []Event) []Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, e := range events {
		if _, dup := seen[e.EventID]; dup {
			continue
		}
		seen[e.EventID] = struct{}{}
		out = append(out, e)
	}
	return out
}

func anyNameMatches(name string, queries []string) bool {
	for _, q := range queries {
		if nameMatches(name, q) {
			return true
		}
	}
	return false
}

func vs(m match.Canonical) string {
	return orUnknown(m.Player1.Name) + " vs " + orUnknown(m.Player2.Name)
}

func resultTitle(m match.Canonical) string {
	if m.WinnerName == "" {
		return vs(m) + " (final)"
	}
	return m.WinnerName + " def. " + orUnknown(m.LoserName())
}

func resultDetail(m match.Canonical) string {
	parts := []string{m.Tournament, m.RoundLabel}
	if score := formatScore(m.Sets()); score != "" {
		parts = append(parts, score)
	}
	return joinNonEmpty(parts, " · ")
}

func roundDetail(m match.Canonical) string {
	return joinNonEmpty([]string{m.Tournament, m.RoundLabel, titleCase(m.Surface)}, " · ")
}

func scheduleDetail(m match.Canonical) string {
	when := m.ScheduledTime
	if !m.Scheduled.IsZero() {
		when = m.Scheduled.UTC().Format("Mon 02 Jan 15:04 UTC")
	}
	return joinNonEmpty([]string{m.Tournament, m.RoundLabel, when}, " · ")
}

func rankingDetail(e match.RankingEntry) string {
	parts := []string{e.Tour}
	if e.Rank != nil {
		parts = append(parts, "rank #"+strconv.Itoa(*e.Rank))
	}
	if e.CareerHigh != nil {
		parts = append(parts, "career high #"+strconv.Itoa(*e.CareerHigh))
	}
	if e.Titles != nil {
		parts = append(parts, strconv.Itoa(*e.Titles)+" titles")
	}
	return joinNonEmpty(parts, " · ")
}

// formatScore renders sets as "6-4 7-6(5)", with the loser's tiebreak points
// in parentheses.
func formatScore(sets []match.SetScore) string {
	out := make([]string, 0, len(sets))
	for _, s := range sets {
		part := fmt.Sprintf("%d-%d", s.P1, s.P2)
		if s.HasTiebreak() {
			var tb *int
			if s.P1 > s.P2 {
				tb = s.TiebreakP2
			} else {
				tb = s.TiebreakP1
			}
			if tb != nil {
				part += fmt.Sprintf("(%d)", *tb)
			}
		}
		out = append(out, part)
	}
	return strings.Join(out, " ")
}

func formatWindow(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func milestoneLabel(m string) string {
	if m == rules.MilestoneCareerHigh {
		return "a career high"
	}
	return strings.ReplaceAll(strings.ToUpper(m[:1])+m[1:], "_", " ")
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orUnknown(s string) string {
	if s == "" {
		return "TBD"
	}
	return s
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
