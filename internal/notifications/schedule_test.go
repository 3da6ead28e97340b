package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/albapepper/tennis-alerts/internal/rules"
)

func quietRule(t *testing.T, start, end int, offset string) rules.Rule {
	return mustRule(t, func(r *rules.Rule) {
		r.EventType = rules.MatchResult
		r.QuietHours = rules.QuietHours{Enabled: true, StartHour: start, EndHour: end, TimezoneOffset: offset}
	})
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 6, 10, hour, minute, 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	overnight := quietRule(t, 23, 7, "+00:00")
	cases := []struct {
		name string
		r    rules.Rule
		now  time.Time
		want bool
	}{
		{"overnight 02:00", overnight, at(2, 0), true},
		{"overnight 10:00", overnight, at(10, 0), false},
		{"overnight start inclusive", overnight, at(23, 0), true},
		{"overnight end exclusive", overnight, at(7, 0), false},
		{"daytime window", quietRule(t, 9, 17, "+00:00"), at(12, 30), true},
		{"equal bounds never quiet", quietRule(t, 9, 9, "+00:00"), at(9, 0), false},
		{"offset shifts local hour", quietRule(t, 0, 6, "+05:30"), at(20, 0), true},
		{"negative offset", quietRule(t, 22, 6, "-05:00"), at(4, 0), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := InQuietHours(c.r, c.now); got != c.want {
				t.Fatalf("InQuietHours=%v, want %v", got, c.want)
			}
		})
	}

	disabled := overnight
	disabled.QuietHours.Enabled = false
	if InQuietHours(disabled, at(2, 0)) {
		t.Fatal("disabled quiet hours must never silence")
	}
}

func TestInCooldown(t *testing.T) {
	now := at(12, 0)
	last := now.Add(-5 * time.Minute)

	r := mustRule(t, func(r *rules.Rule) {
		r.EventType = rules.MatchResult
		r.CooldownMinutes = 10
	})
	if !InCooldown(r, &last, now) {
		t.Fatal("sent 5m ago with 10m cooldown should skip")
	}
	r.CooldownMinutes = 3
	if InCooldown(r, &last, now) {
		t.Fatal("sent 5m ago with 3m cooldown should proceed")
	}
	r.CooldownMinutes = 0
	if InCooldown(r, &last, now) {
		t.Fatal("zero cooldown never skips")
	}
	r.CooldownMinutes = 10
	if InCooldown(r, nil, now) {
		t.Fatal("a rule that never sent is not in cooldown")
	}
}

type sentSet map[string]bool

func (s sentSet) IsSent(id string) bool { return s[id] }

func TestFilterNew(t *testing.T) {
	events := []Event{{EventID: "a"}, {EventID: "b"}, {EventID: "c"}}
	got := FilterNew(events, sentSet{"b": true})
	if len(got) != 2 || got[0].EventID != "a" || got[1].EventID != "c" {
		t.Fatalf("got %+v", got)
	}
	if again := FilterNew(got, sentSet{"a": true, "b": true, "c": true}); len(again) != 0 {
		t.Fatalf("already-sent events leaked: %+v", again)
	}
}

func TestRender(t *testing.T) {
	r := mustRule(t, func(r *rules.Rule) {
		r.EventType = rules.MatchResult
		r.Name = "Rome results"
		r.Severity = rules.SeverityImportant
	})

	events := make([]Event, 30)
	for i := range events {
		events[i] = Event{EventID: string(rune('a' + i)), Title: "Result " + string(rune('A'+i)), Tournament: "Rome <Masters>"}
	}
	msg, err := Render(r, "fan@example.com", events)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.Subject != "[IMPORTANT] Tennis Alert: Rome results (30 new)" {
		t.Fatalf("subject=%q", msg.Subject)
	}
	if msg.To != "fan@example.com" || msg.Severity != rules.SeverityImportant {
		t.Fatalf("message=%+v", msg)
	}
	if strings.Count(msg.HTML, "<tr><td>") != htmlEventLimit {
		t.Fatalf("html rows=%d", strings.Count(msg.HTML, "<tr><td>"))
	}
	if !strings.Contains(msg.HTML, "and 5 more") {
		t.Fatal("html should mention the hidden events")
	}
	if strings.Contains(msg.HTML, "<Masters>") {
		t.Fatal("html must escape event text")
	}
	if !strings.Contains(msg.Text, "30. Result ") {
		t.Fatal("text body should list every event")
	}
}

func TestSubjectDefaultsSeverity(t *testing.T) {
	if got := Subject(rules.Rule{Name: "x"}, 1); got != "[NORMAL] Tennis Alert: x (1 new)" {
		t.Fatalf("got %q", got)
	}
}
