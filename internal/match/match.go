// Package match defines the canonical tennis match shape and normalizes the
// heterogeneous live/upcoming/recent payloads of the tennis data API into it.
//
// Normalization never fails: missing or malformed fields degrade to empty
// values so one bad upstream row cannot abort a detection run.
package match

import "time"

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

// Status is the lifecycle stage of a match.
type Status string

const (
	StatusLive     Status = "live"
	StatusUpcoming Status = "upcoming"
	StatusFinished Status = "finished"
)

// Tours.
const (
	TourATP = "ATP"
	TourWTA = "WTA"
)

// Round labels, ordered by stage.
const (
	RoundQual    = "QUAL"
	RoundR128    = "R128"
	RoundR64     = "R64"
	RoundR32     = "R32"
	RoundR16     = "R16"
	RoundQF      = "QF"
	RoundSF      = "SF"
	RoundF       = "F"
	RoundTitle   = "TITLE"
	RoundUnknown = "UNKNOWN"
)

var roundRanks = map[string]int{
	RoundQual:  0,
	RoundR128:  1,
	RoundR64:   2,
	RoundR32:   3,
	RoundR16:   4,
	RoundQF:    5,
	RoundSF:    6,
	RoundF:     7,
	RoundTitle: 8,
}

// RoundRank returns the ordering rank of a round label, or -1 if unknown.
func RoundRank(label string) int {
	if r, ok := roundRanks[label]; ok {
		return r
	}
	return -1
}

// Tournament categories.
const (
	CategoryGrandSlam   = "grand_slam"
	CategoryMasters1000 = "masters_1000"
	CategoryATP500      = "atp_500"
	CategoryATP250      = "atp_250"
	CategoryWTA1000     = "wta_1000"
	CategoryWTA500      = "wta_500"
	CategoryWTA250      = "wta_250"
	CategoryFinals      = "finals"
	CategoryChallenger  = "challenger"
	CategoryITF         = "itf"
	CategoryOther       = "other"
)

// Categories lists every category value in display order.
var Categories = []string{
	CategoryGrandSlam, CategoryMasters1000, CategoryATP500, CategoryATP250,
	CategoryWTA1000, CategoryWTA500, CategoryWTA250, CategoryFinals,
	CategoryChallenger, CategoryITF, CategoryOther,
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Player is one side of a match.
type Player struct {
	Name       string `json:"name"`
	Rank       *int   `json:"rank,omitempty"`
	CareerHigh *int   `json:"career_high,omitempty"`
	Country    string `json:"country,omitempty"`
}

// SetScore is the games won by each player in one set. Tiebreak points are
// set only when the set went to a tiebreak.
type SetScore struct {
	P1         int  `json:"p1"`
	P2         int  `json:"p2"`
	TiebreakP1 *int `json:"tiebreak_p1,omitempty"`
	TiebreakP2 *int `json:"tiebreak_p2,omitempty"`
}

// HasTiebreak reports whether the set recorded tiebreak points.
func (s SetScore) HasTiebreak() bool {
	return s.TiebreakP1 != nil || s.TiebreakP2 != nil
}

// Completed reports whether the set is over. A set is complete when one side
// has at least six games with a two-game lead, or 7-5/7-6, or a tiebreak was
// recorded.
func (s SetScore) Completed() bool {
	hi, lo := s.P1, s.P2
	if lo > hi {
		hi, lo = lo, hi
	}
	switch {
	case hi >= 6 && hi-lo >= 2:
		return true
	case hi == 7 && (lo == 5 || lo == 6):
		return true
	case s.HasTiebreak() && hi > lo:
		return true
	}
	return false
}

// Canonical is the normalized, source-agnostic match record consumed by
// detection. It is rebuilt on every poll and never persisted.
type Canonical struct {
	ID            string     `json:"id"`
	Tour          string     `json:"tour"`
	Status        Status     `json:"status"`
	Tournament    string     `json:"tournament"`
	Category      string     `json:"category"`
	Surface       string     `json:"surface"`
	Round         string     `json:"round"`
	RoundLabel    string     `json:"round_label"`
	RoundRank     int        `json:"round_rank"`
	ScheduledTime string     `json:"scheduled_time"`
	Scheduled     time.Time  `json:"-"`
	Player1       Player     `json:"player1"`
	Player2       Player     `json:"player2"`
	WinnerName    string     `json:"winner_name"`
	Score         []SetScore `json:"score,omitempty"`
	FinalScore    []SetScore `json:"final_score,omitempty"`
}

// Sets returns the most authoritative set list: the final score when known,
// otherwise the running score.
func (m Canonical) Sets() []SetScore {
	if len(m.FinalScore) > 0 {
		return m.FinalScore
	}
	return m.Score
}

// CompletedSets counts sets that are over.
func (m Canonical) CompletedSets() int {
	sets := m.Sets()
	if m.Status == StatusFinished {
		return len(sets)
	}
	n := 0
	for _, s := range sets {
		if s.Completed() {
			n++
		}
	}
	return n
}

// LoserName returns the name of the player who is not the winner, or "" when
// the winner is unknown.
func (m Canonical) LoserName() string {
	switch m.WinnerName {
	case "":
		return ""
	case m.Player1.Name:
		return m.Player2.Name
	case m.Player2.Name:
		return m.Player1.Name
	}
	return ""
}

// Winner returns the winning player record, if resolved.
func (m Canonical) Winner() (Player, bool) {
	switch {
	case m.WinnerName == "":
		return Player{}, false
	case m.WinnerName == m.Player1.Name:
		return m.Player1, true
	case m.WinnerName == m.Player2.Name:
		return m.Player2, true
	}
	return Player{}, false
}

// Loser returns the losing player record, if the winner is resolved.
func (m Canonical) Loser() (Player, bool) {
	switch {
	case m.WinnerName == "":
		return Player{}, false
	case m.WinnerName == m.Player1.Name:
		return m.Player2, true
	case m.WinnerName == m.Player2.Name:
		return m.Player1, true
	}
	return Player{}, false
}

// IsFinished reports whether the match is over.
func (m Canonical) IsFinished() bool {
	return m.Status == StatusFinished
}

// Bundle groups the three canonical match lists fetched once per run.
type Bundle struct {
	Live     []Canonical
	Upcoming []Canonical
	Recent   []Canonical
}

// Size returns the total number of matches in the bundle.
func (b Bundle) Size() int {
	return len(b.Live) + len(b.Upcoming) + len(b.Recent)
}
