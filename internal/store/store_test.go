package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/albapepper/tennis-alerts/internal/rules"
)

var testNow = time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC)

func newFileRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "alerts_store.json")
	repo := NewRepository(NewFileBackend(path), nil)
	repo.now = func() time.Time { return testNow }
	return repo, path
}

func TestRepository_LoadMissingFileReturnsDefault(t *testing.T) {
	repo, _ := newFileRepo(t)
	doc, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !doc.Enabled || len(doc.Rules) != 0 || doc.SentEvents == nil || doc.RuleState == nil {
		t.Fatalf("unexpected default doc: %+v", doc)
	}
}

func TestRepository_UpdateRoundTrip(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	_, err := repo.Update(ctx, func(doc *Document) error {
		doc.Email = "fan@example.com"
		doc.MarkSent(testNow, "e1", "e2")
		doc.StateFor("r1").RecordSets("m1", 2)
		doc.AddHistory(testNow, LevelInfo, "hello", nil)
		return doc.AddRule(rules.Rule{ID: "r1", Name: "x", EventType: rules.MatchResult, Enabled: true})
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("store file not written: %v", err)
	}

	doc, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Email != "fan@example.com" || !doc.IsSent("e2") || doc.StateFor("r1").SetCount("m1") != 2 {
		t.Fatalf("round trip lost data: %+v", doc)
	}
	if len(doc.History) != 1 || !doc.UpdatedAt.Equal(testNow) {
		t.Fatalf("history=%v updated=%v", doc.History, doc.UpdatedAt)
	}
}

func TestRepository_UpdateErrorWritesNothing(t *testing.T) {
	repo, path := newFileRepo(t)
	boom := errors.New("boom")
	_, err := repo.Update(context.Background(), func(doc *Document) error {
		doc.Email = "x@example.com"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("store file should not exist, stat err=%v", err)
	}
}

func TestRepository_CorruptFileResetsWithWarning(t *testing.T) {
	repo, path := newFileRepo(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.History) != 1 || doc.History[0].Level != LevelWarning {
		t.Fatalf("expected one warning history entry, got %+v", doc.History)
	}
	if !strings.Contains(doc.History[0].Message, "reset") {
		t.Fatalf("message=%q", doc.History[0].Message)
	}

	// The reset is written back, so the next load is clean.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(data); err != nil {
		t.Fatalf("reset document not persisted: %v", err)
	}
	again, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(again.History) != 1 {
		t.Fatalf("second load reset again: %+v", again.History)
	}
}

func TestDecode_ForwardCompatible(t *testing.T) {
	doc, err := Decode([]byte(`{"email":"a@b.c","future_field":{"x":1},"rule_state":{"r1":null}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !doc.Enabled {
		t.Fatal("missing enabled should default to true")
	}
	if doc.SentEvents == nil || doc.History == nil || len(doc.RuleState) != 0 {
		t.Fatalf("defaults not filled: %+v", doc)
	}
}

func TestDocument_HistoryCap(t *testing.T) {
	doc := Default()
	for i := 0; i < MaxHistory+25; i++ {
		doc.AddHistory(testNow, LevelInfo, fmt.Sprintf("m%d", i), nil)
	}
	if len(doc.History) != MaxHistory {
		t.Fatalf("len=%d", len(doc.History))
	}
	if doc.History[0].Message != fmt.Sprintf("m%d", MaxHistory+24) {
		t.Fatalf("newest first violated: %q", doc.History[0].Message)
	}
	if got := doc.RecentHistory(StateHistoryLen); len(got) != StateHistoryLen {
		t.Fatalf("recent=%d", len(got))
	}
}

func TestDocument_CompactSentEventsKeepsNewest(t *testing.T) {
	doc := Default()
	for i := 0; i < 20; i++ {
		doc.MarkSent(testNow.Add(time.Duration(i)*time.Minute), fmt.Sprintf("e%02d", i))
	}
	doc.SentEvents["garbage"] = "not-a-time"

	removed := doc.CompactSentEvents(10)
	if removed != 11 || len(doc.SentEvents) != 10 {
		t.Fatalf("removed=%d len=%d", removed, len(doc.SentEvents))
	}
	if doc.IsSent("garbage") || doc.IsSent("e09") || !doc.IsSent("e10") || !doc.IsSent("e19") {
		t.Fatalf("wrong entries kept: %v", doc.SentEvents)
	}
}

func TestDocument_RuleLifecycle(t *testing.T) {
	doc := Default()
	created := testNow.Add(-time.Hour)
	if err := doc.AddRule(rules.Rule{ID: "r1", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	doc.StateFor("r1").MarkLiveSeen("m1", testNow)

	if err := doc.ReplaceRule(rules.Rule{ID: "r1", Name: "renamed", CreatedAt: testNow}); err != nil {
		t.Fatal(err)
	}
	if doc.Rules[0].Name != "renamed" || !doc.Rules[0].CreatedAt.Equal(created) {
		t.Fatalf("replace: %+v", doc.Rules[0])
	}
	if err := doc.ReplaceRule(rules.Rule{ID: "nope"}); !errors.Is(err, rules.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if err := doc.DeleteRule("r1"); err != nil {
		t.Fatal(err)
	}
	if len(doc.Rules) != 0 || len(doc.RuleState) != 0 {
		t.Fatalf("delete left data: %+v %+v", doc.Rules, doc.RuleState)
	}
}

func TestDocument_RuleCap(t *testing.T) {
	doc := Default()
	for i := 0; i < rules.MaxRules; i++ {
		if err := doc.AddRule(rules.Rule{ID: fmt.Sprint(i)}); err != nil {
			t.Fatalf("rule %d: %v", i, err)
		}
	}
	if err := doc.AddRule(rules.Rule{ID: "overflow"}); !errors.Is(err, rules.ErrTooManyRules) {
		t.Fatalf("err=%v", err)
	}
}

func TestRuleState_LiveSeenTrim(t *testing.T) {
	st := &RuleState{}
	for i := 0; i <= LiveSeenCap; i++ {
		st.MarkLiveSeen(fmt.Sprintf("m%05d", i), testNow)
	}
	if len(st.LiveSeen) != LiveSeenKeep {
		t.Fatalf("len=%d", len(st.LiveSeen))
	}
	if st.SeenLive("m00000") || !st.SeenLive(fmt.Sprintf("m%05d", LiveSeenCap)) {
		t.Fatal("trim should keep lexically greatest ids")
	}
}

func TestRuleState_RecordSetsMonotonic(t *testing.T) {
	st := &RuleState{}
	st.RecordSets("m1", 3)
	st.RecordSets("m1", 1)
	if st.SetCount("m1") != 3 {
		t.Fatalf("set count=%d", st.SetCount("m1"))
	}
}
