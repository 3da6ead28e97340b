package rules

import (
	"time"

	"github.com/albapepper/tennis-alerts/internal/match"
)

// Spec is the typed, per-event-type detection configuration derived from a
// validated rule. Exactly one concrete type exists per EventType.
type Spec interface {
	Kind() EventType
}

type (
	UpcomingMatchSpec       struct{}
	MatchResultSpec         struct{}
	TournamentCompletedSpec struct{}
	LiveMatchStartsSpec     struct{}

	PlayerReachesRoundSpec struct {
		Players     []string
		TargetLabel string
		TargetRank  int
	}

	SetCompletedSpec struct {
		Target int
	}

	UpsetAlertSpec struct {
		MinRankGap int
	}

	CloseMatchSpec struct {
		Mode string
	}

	SurfaceResultSpec struct {
		Surface string
	}

	StageReminderSpec struct {
		Stages []string
	}

	TimeWindowSpec struct {
		Window time.Duration
	}

	RankingMilestoneSpec struct {
		Players         []string
		Milestone       string
		EmitOnFirstSeen bool
		Limit           int
	}

	TitleMilestoneSpec struct {
		Players         []string
		Target          int
		EmitOnFirstSeen bool
		Limit           int
	}

	HeadToHeadSpec struct {
		Tracked   string
		Rival     string
		MinLosses int
	}
)

func (UpcomingMatchSpec) Kind() EventType       { return UpcomingMatch }
func (MatchResultSpec) Kind() EventType         { return MatchResult }
func (TournamentCompletedSpec) Kind() EventType { return TournamentCompleted }
func (LiveMatchStartsSpec) Kind() EventType     { return LiveMatchStarts }
func (PlayerReachesRoundSpec) Kind() EventType  { return PlayerReachesRound }
func (SetCompletedSpec) Kind() EventType        { return SetCompleted }
func (UpsetAlertSpec) Kind() EventType          { return UpsetAlert }
func (CloseMatchSpec) Kind() EventType          { return CloseMatchDecidingSet }
func (SurfaceResultSpec) Kind() EventType       { return SurfaceSpecificResult }
func (StageReminderSpec) Kind() EventType       { return TournamentStageReminder }
func (TimeWindowSpec) Kind() EventType          { return TimeWindowSchedule }
func (RankingMilestoneSpec) Kind() EventType    { return RankingMilestone }
func (TitleMilestoneSpec) Kind() EventType      { return TitleMilestone }
func (HeadToHeadSpec) Kind() EventType          { return HeadToHeadBreaker }

// Spec builds the typed detection configuration. It assumes the rule was
// produced by Normalize and returns nil for an unknown event type.
func (r Rule) Spec() Spec {
	p := r.Params
	switch r.EventType {
	case UpcomingMatch:
		return UpcomingMatchSpec{}
	case MatchResult:
		return MatchResultSpec{}
	case TournamentCompleted:
		return TournamentCompletedSpec{}
	case LiveMatchStarts:
		return LiveMatchStartsSpec{}
	case PlayerReachesRound:
		label := p.TargetRound
		if match.RoundRank(label) < 0 {
			label = match.RoundQF
		}
		return PlayerReachesRoundSpec{Players: r.Interested(), TargetLabel: label, TargetRank: match.RoundRank(label)}
	case SetCompleted:
		return SetCompletedSpec{Target: max(1, p.SetTarget)}
	case UpsetAlert:
		return UpsetAlertSpec{MinRankGap: max(1, p.UpsetMinRankGap)}
	case CloseMatchDecidingSet:
		return CloseMatchSpec{Mode: softEnum(p.CloseMode, CloseModes, CloseDecidingSet)}
	case SurfaceSpecificResult:
		return SurfaceResultSpec{Surface: p.Surface}
	case TournamentStageReminder:
		stages := p.StageRounds
		if len(stages) == 0 {
			stages = StageRounds
		}
		return StageReminderSpec{Stages: stages}
	case TimeWindowSchedule:
		return TimeWindowSpec{Window: time.Duration(max(1, p.WindowHours)) * time.Hour}
	case RankingMilestone:
		return RankingMilestoneSpec{
			Players:         r.Interested(),
			Milestone:       softEnum(p.Milestone, Milestones, MilestoneTop10),
			EmitOnFirstSeen: p.EmitOnFirstSeen,
			Limit:           clampDefault(p.RankingsLimit, 10, 500, 200),
		}
	case TitleMilestone:
		return TitleMilestoneSpec{
			Players:         r.Interested(),
			Target:          max(1, p.TitleTarget),
			EmitOnFirstSeen: p.EmitOnFirstSeen,
			Limit:           clampDefault(p.RankingsLimit, 10, 500, 200),
		}
	case HeadToHeadBreaker:
		return HeadToHeadSpec{Tracked: r.TrackedPlayer, Rival: p.RivalPlayer, MinLosses: max(1, p.H2HMinLosses)}
	}
	return nil
}
