// Package rules defines the user-configurable alert rule, its closed
// enumerations, and the validator that turns raw submissions into a
// canonical, bounded rule. A validated rule exposes a typed detection Spec so
// the detector never re-checks membership.
package rules

import (
	"time"

	"github.com/albapepper/tennis-alerts/internal/match"
)

// --------------------------------------------------------------------------
// Limits
// --------------------------------------------------------------------------

const (
	MaxRules          = 200
	MaxConditions     = 3
	MaxNameLength     = 120
	MaxCooldown       = 7 * 24 * 60
	DefaultTZOffset   = "+00:00"
	DefaultNameSuffix = "alert"
)

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

// EventType identifies one of the fourteen detection algorithms.
type EventType string

const (
	UpcomingMatch           EventType = "upcoming_match"
	MatchResult             EventType = "match_result"
	TournamentCompleted     EventType = "tournament_completed"
	PlayerReachesRound      EventType = "player_reaches_round"
	LiveMatchStarts         EventType = "live_match_starts"
	SetCompleted            EventType = "set_completed"
	UpsetAlert              EventType = "upset_alert"
	CloseMatchDecidingSet   EventType = "close_match_deciding_set"
	SurfaceSpecificResult   EventType = "surface_specific_result"
	TournamentStageReminder EventType = "tournament_stage_reminder"
	TimeWindowSchedule      EventType = "time_window_schedule_alert"
	RankingMilestone        EventType = "ranking_milestone"
	TitleMilestone          EventType = "title_milestone"
	HeadToHeadBreaker       EventType = "head_to_head_breaker"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{
	UpcomingMatch, MatchResult, TournamentCompleted, PlayerReachesRound,
	LiveMatchStarts, SetCompleted, UpsetAlert, CloseMatchDecidingSet,
	SurfaceSpecificResult, TournamentStageReminder, TimeWindowSchedule,
	RankingMilestone, TitleMilestone, HeadToHeadBreaker,
}

// Tour filters.
const (
	TourATP  = "atp"
	TourWTA  = "wta"
	TourBoth = "both"
)

// Round modes.
const (
	RoundAny   = "any"
	RoundMin   = "min"
	RoundExact = "exact"
)

// Condition groups.
const (
	GroupAll = "all"
	GroupAny = "any"
)

// Condition fields and operators.
const (
	FieldTournament = "tournament_name"
	FieldPlayer     = "player_name"
	FieldCategory   = "category"
	FieldSurface    = "surface"
	FieldRoundRank  = "round_rank"

	OpContains = "contains"
	OpEquals   = "equals"
	OpGTE      = "gte"
	OpLTE      = "lte"
)

// Delivery channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
	ChannelWebPush  = "web_push"
)

// Severities.
const (
	SeverityImportant = "important"
	SeverityNormal    = "normal"
	SeverityDigest    = "digest"
)

// Close-match modes.
const (
	CloseDecidingSet  = "deciding_set"
	CloseTiebreak     = "tiebreak"
	CloseThirdOrFifth = "third_or_fifth"
)

// Ranking milestones.
const (
	MilestoneTop100     = "top_100"
	MilestoneTop50      = "top_50"
	MilestoneTop20      = "top_20"
	MilestoneTop10      = "top_10"
	MilestoneCareerHigh = "career_high"
)

var (
	Tours           = []string{TourATP, TourWTA, TourBoth}
	RoundModes      = []string{RoundAny, RoundMin, RoundExact}
	ConditionGroups = []string{GroupAll, GroupAny}
	ConditionFields = []string{FieldTournament, FieldPlayer, FieldCategory, FieldSurface, FieldRoundRank}
	Operators       = []string{OpContains, OpEquals, OpGTE, OpLTE}
	Channels        = []string{ChannelEmail, ChannelTelegram, ChannelDiscord, ChannelWebPush}
	Severities      = []string{SeverityImportant, SeverityNormal, SeverityDigest}
	CloseModes      = []string{CloseDecidingSet, CloseTiebreak, CloseThirdOrFifth}
	Milestones      = []string{MilestoneTop100, MilestoneTop50, MilestoneTop20, MilestoneTop10, MilestoneCareerHigh}
	Surfaces        = []string{"hard", "clay", "grass", "carpet"}
	StageRounds     = []string{match.RoundQF, match.RoundSF, match.RoundF}
	RoundLabels     = []string{
		match.RoundQual, match.RoundR128, match.RoundR64, match.RoundR32,
		match.RoundR16, match.RoundQF, match.RoundSF, match.RoundF, match.RoundTitle,
	}
)

// MilestoneThresholds maps top-N milestones to their rank ceiling.
var MilestoneThresholds = map[string]int{
	MilestoneTop100: 100,
	MilestoneTop50:  50,
	MilestoneTop20:  20,
	MilestoneTop10:  10,
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Condition is one extra field/operator/value predicate.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// QuietHours silences a rule during a local-time window.
type QuietHours struct {
	Enabled        bool   `json:"enabled"`
	StartHour      int    `json:"start_hour"`
	EndHour        int    `json:"end_hour"`
	TimezoneOffset string `json:"timezone_offset"`
}

// Params holds event-type-specific settings. Every field is defaulted and
// clamped by Normalize; fields irrelevant to the rule's event type are kept
// at their defaults.
type Params struct {
	UpsetMinRankGap int      `json:"upset_min_rank_gap"`
	WindowHours     int      `json:"window_hours"`
	StageRounds     []string `json:"stage_rounds"`
	SetTarget       int      `json:"set_target"`
	CloseMode       string   `json:"close_mode"`
	Surface         string   `json:"surface"`
	Milestone       string   `json:"milestone"`
	EmitOnFirstSeen bool     `json:"emit_on_first_seen"`
	TitleTarget     int      `json:"title_target"`
	H2HMinLosses    int      `json:"h2h_min_losses"`
	RivalPlayer     string   `json:"rival_player"`
	RankingsLimit   int      `json:"rankings_limit"`
	TargetRound     string   `json:"target_round"`
}

// Rule is the persisted alert rule.
type Rule struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Enabled         bool        `json:"enabled"`
	EventType       EventType   `json:"event_type"`
	Tour            string      `json:"tour"`
	RoundMode       string      `json:"round_mode"`
	RoundValue      string      `json:"round_value"`
	ConditionGroup  string      `json:"condition_group"`
	Conditions      []Condition `json:"conditions"`
	Categories      []string    `json:"categories"`
	Tournaments     []string    `json:"tournaments"`
	Players         []string    `json:"players"`
	TrackedPlayer   string      `json:"tracked_player"`
	QuietHours      QuietHours  `json:"quiet_hours"`
	CooldownMinutes int         `json:"cooldown_minutes"`
	Channels        []string    `json:"channels"`
	Severity        string      `json:"severity"`
	Params          Params      `json:"params"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// New returns a rule pre-populated with the defaults a submission omits.
// Decode request bodies into it so missing fields keep these values.
func New() Rule {
	return Rule{
		Enabled:        true,
		Tour:           TourBoth,
		RoundMode:      RoundAny,
		ConditionGroup: GroupAll,
		Severity:       SeverityNormal,
		Channels:       []string{ChannelEmail},
		QuietHours:     QuietHours{StartHour: 23, EndHour: 7, TimezoneOffset: DefaultTZOffset},
	}
}

// Interested returns the tracked player followed by the listed players.
func (r Rule) Interested() []string {
	out := make([]string, 0, len(r.Players)+1)
	if r.TrackedPlayer != "" {
		out = append(out, r.TrackedPlayer)
	}
	for _, p := range r.Players {
		if p != r.TrackedPlayer {
			out = append(out, p)
		}
	}
	return out
}

// HasChannel reports whether the rule delivers on ch.
func (r Rule) HasChannel(ch string) bool {
	for _, c := range r.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Options returns the closed enumerations served to the rule editor.
func Options() map[string]interface{} {
	return map[string]interface{}{
		"event_types":      EventTypes,
		"tours":            Tours,
		"round_modes":      RoundModes,
		"round_labels":     RoundLabels,
		"condition_groups": ConditionGroups,
		"condition_fields": ConditionFields,
		"operators":        Operators,
		"categories":       match.Categories,
		"surfaces":         Surfaces,
		"milestones":       Milestones,
		"stage_rounds":     StageRounds,
		"close_modes":      CloseModes,
		"channels":         Channels,
		"severities":       Severities,
	}
}
