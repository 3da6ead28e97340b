package rules

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_RejectsUnknownPrimaryFields(t *testing.T) {
	cases := []struct {
		name  string
		rule  Rule
		field string
	}{
		{"event type", Rule{EventType: "meteor_strike"}, "event_type"},
		{"tour", Rule{EventType: MatchResult, Tour: "itf"}, "tour"},
		{"round mode", Rule{EventType: MatchResult, RoundMode: "between"}, "round_mode"},
		{"missing round value", Rule{EventType: MatchResult, RoundMode: RoundMin}, "round_value"},
		{"bad round value", Rule{EventType: MatchResult, RoundMode: RoundExact, RoundValue: "lunch"}, "round_value"},
		{"tracked player", Rule{EventType: RankingMilestone}, "tracked_player"},
		{"rival", Rule{EventType: HeadToHeadBreaker, TrackedPlayer: "sinner"}, "tracked_player"},
		{"surface", Rule{EventType: SurfaceSpecificResult, Params: Params{Surface: "sand"}}, "params.surface"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Normalize(c.rule, testNow)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != c.field {
				t.Fatalf("field=%q, want %q (%s)", ve.Field, c.field, ve.Message)
			}
		})
	}
}

func TestNormalize_SoftDefaults(t *testing.T) {
	r, err := Normalize(Rule{
		EventType:      "Match_Result",
		Tour:           "ATP",
		ConditionGroup: "most",
		Severity:       "urgent",
		Channels:       []string{"SMS", "telegram", "telegram"},
		Players:        []string{"  Jannik Sinner ", "", "jannik sinner"},
		Conditions: []Condition{
			{Field: "surface", Operator: "equals", Value: "clay"},
			{Field: "weather", Operator: "equals", Value: "sunny"},
			{Field: "round_rank", Operator: "gte", Value: "5"},
			{Field: "category", Operator: "contains", Value: "slam"},
			{Field: "tournament_name", Operator: "contains", Value: "open"},
		},
		QuietHours: QuietHours{Enabled: true, StartHour: 30, EndHour: -2, TimezoneOffset: "bogus"},
	}, testNow)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if r.EventType != MatchResult || r.Tour != TourATP {
		t.Fatalf("primary fields: %q %q", r.EventType, r.Tour)
	}
	if r.ConditionGroup != GroupAll || r.Severity != SeverityNormal {
		t.Fatalf("soft enums: %q %q", r.ConditionGroup, r.Severity)
	}
	if len(r.Channels) != 1 || r.Channels[0] != ChannelTelegram {
		t.Fatalf("channels=%v", r.Channels)
	}
	if len(r.Players) != 1 || r.Players[0] != "jannik sinner" {
		t.Fatalf("players=%v", r.Players)
	}
	if len(r.Conditions) != MaxConditions || r.Conditions[1].Field != FieldRoundRank {
		t.Fatalf("conditions=%+v", r.Conditions)
	}
	if r.QuietHours.StartHour != 23 || r.QuietHours.EndHour != 0 || r.QuietHours.TimezoneOffset != DefaultTZOffset {
		t.Fatalf("quiet hours=%+v", r.QuietHours)
	}
	if r.ID == "" || !r.CreatedAt.Equal(testNow) {
		t.Fatalf("identity not assigned: id=%q created=%v", r.ID, r.CreatedAt)
	}
	if r.Name != "match result alert" {
		t.Fatalf("default name=%q", r.Name)
	}
}

func TestNormalize_EmptyChannelsDefaultToEmail(t *testing.T) {
	r, err := Normalize(Rule{EventType: UpcomingMatch, Channels: []string{"pager"}}, testNow)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(r.Channels) != 1 || r.Channels[0] != ChannelEmail {
		t.Fatalf("channels=%v", r.Channels)
	}
}

func TestNormalize_NameTruncatedOnRuneBoundary(t *testing.T) {
	name := strings.Repeat("a", MaxNameLength-1) + "Świątek"
	r, err := Normalize(Rule{EventType: MatchResult, Name: name}, testNow)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !utf8.ValidString(r.Name) {
		t.Fatalf("name split a rune: %q", r.Name)
	}
	if utf8.RuneCountInString(r.Name) != MaxNameLength || !strings.HasSuffix(r.Name, "aŚ") {
		t.Fatalf("name=%q", r.Name)
	}
}

func TestNormalize_ParamsClamped(t *testing.T) {
	r, err := Normalize(Rule{
		EventType: UpsetAlert,
		Params: Params{
			UpsetMinRankGap: 9000,
			WindowHours:     -4,
			StageRounds:     []string{"final", "R16", "Semi-final", "F"},
			CloseMode:       "nail_biter",
			Milestone:       "top_3",
			TargetRound:     "semi",
		},
	}, testNow)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	p := r.Params
	if p.UpsetMinRankGap != 500 || p.WindowHours != 1 || p.H2HMinLosses != 3 || p.SetTarget != 1 {
		t.Fatalf("numeric params=%+v", p)
	}
	if len(p.StageRounds) != 2 || p.StageRounds[0] != "F" || p.StageRounds[1] != "SF" {
		t.Fatalf("stage rounds=%v", p.StageRounds)
	}
	if p.CloseMode != CloseDecidingSet || p.Milestone != MilestoneTop10 || p.TargetRound != "SF" {
		t.Fatalf("enum params=%+v", p)
	}

	d, _ := Normalize(Rule{EventType: TournamentStageReminder}, testNow)
	if len(d.Params.StageRounds) != 3 || d.Params.UpsetMinRankGap != 20 || d.Params.WindowHours != 24 {
		t.Fatalf("defaults=%+v", d.Params)
	}
}

func TestNormalize_PreservesCreatedAt(t *testing.T) {
	created := testNow.Add(-48 * time.Hour)
	r, err := Normalize(Rule{ID: "r1", EventType: UpcomingMatch, CreatedAt: created}, testNow)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if r.ID != "r1" || !r.CreatedAt.Equal(created) || !r.UpdatedAt.Equal(testNow) {
		t.Fatalf("identity=%q created=%v updated=%v", r.ID, r.CreatedAt, r.UpdatedAt)
	}
}

func TestParseOffset(t *testing.T) {
	cases := map[string]int{"+05:30": 330, "-03:00": -180, "+0000": 0, "-9:15": -555}
	for in, want := range cases {
		got, ok := ParseOffset(in)
		if !ok || got != want {
			t.Errorf("ParseOffset(%q)=%d,%v want %d", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "5:30", "+15:00", "+05:75", "UTC"} {
		if _, ok := ParseOffset(bad); ok {
			t.Errorf("ParseOffset(%q) should fail", bad)
		}
	}
	if NormalizeOffset("-9:15") != "-09:15" {
		t.Fatalf("NormalizeOffset=%q", NormalizeOffset("-9:15"))
	}
}

func TestSpec_TypedPerEventType(t *testing.T) {
	for _, et := range EventTypes {
		raw := Rule{EventType: et, TrackedPlayer: "a", Params: Params{RivalPlayer: "b", Surface: "clay"}}
		r, err := Normalize(raw, testNow)
		if err != nil {
			t.Fatalf("%s: %v", et, err)
		}
		spec := r.Spec()
		if spec == nil || spec.Kind() != et {
			t.Fatalf("%s: spec=%#v", et, spec)
		}
	}

	r, _ := Normalize(Rule{EventType: HeadToHeadBreaker, TrackedPlayer: "Sinner", Params: Params{RivalPlayer: "Alcaraz", H2HMinLosses: 2}}, testNow)
	h, ok := r.Spec().(HeadToHeadSpec)
	if !ok || h.Tracked != "sinner" || h.Rival != "alcaraz" || h.MinLosses != 2 {
		t.Fatalf("h2h spec=%#v", r.Spec())
	}
}
