package notifications

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/albapepper/tennis-alerts/internal/delivery"
	"github.com/albapepper/tennis-alerts/internal/match"
	"github.com/albapepper/tennis-alerts/internal/rules"
	"github.com/albapepper/tennis-alerts/internal/store"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeChannel struct {
	name       string
	configured bool
	err        error

	mu   sync.Mutex
	sent []delivery.Message
}

func (f *fakeChannel) Name() string     { return f.name }
func (f *fakeChannel) Configured() bool { return f.configured }

func (f *fakeChannel) Send(_ context.Context, msg delivery.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSource struct {
	bundle   match.Bundle
	rankings fakeRankings
	fetches  atomic.Int32

	// onFetch runs inside FetchBundle, while the run is in flight.
	onFetch func()
}

func (f *fakeSource) FetchBundle(context.Context) match.Bundle {
	f.fetches.Add(1)
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.bundle
}

func (f *fakeSource) Rankings(ctx context.Context, tour string, limit int) []match.RankingEntry {
	return f.rankings.Rankings(ctx, tour, limit)
}

type harness struct {
	repo   *store.Repository
	source *fakeSource
	email  *fakeChannel
	coord  *Coordinator
}

func newHarness(t *testing.T, extra ...delivery.Channel) *harness {
	t.Helper()
	repo := store.NewRepository(store.NewFileBackend(filepath.Join(t.TempDir(), "store.json")), nil)
	email := &fakeChannel{name: delivery.ChannelEmail, configured: true}
	src := &fakeSource{}
	channels := append([]delivery.Channel{email}, extra...)
	coord := NewCoordinator(repo, src, NewDispatcher(nil, channels...), nil)
	coord.Now = func() time.Time { return testNow }

	if _, err := repo.Update(context.Background(), func(doc *store.Document) error {
		doc.Email = "fan@example.com"
		return nil
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return &harness{repo: repo, source: src, email: email, coord: coord}
}

func (h *harness) addRule(t *testing.T, r rules.Rule) {
	t.Helper()
	if _, err := h.repo.Update(context.Background(), func(doc *store.Document) error {
		return doc.AddRule(r)
	}); err != nil {
		t.Fatalf("add rule: %v", err)
	}
}

func (h *harness) load(t *testing.T) *store.Document {
	t.Helper()
	doc, err := h.repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return doc
}

func resultBundle() match.Bundle {
	return match.Bundle{Recent: []match.Canonical{
		finishedMatch("m1", "A", match.Player{Name: "A"}, match.Player{Name: "B"}),
		finishedMatch("m2", "C", match.Player{Name: "C"}, match.Player{Name: "D"}),
	}}
}

func resultRule(t *testing.T, channels ...string) rules.Rule {
	return mustRule(t, func(r *rules.Rule) {
		r.EventType = rules.MatchResult
		r.Name = "Results"
		if len(channels) > 0 {
			r.Channels = channels
		}
	})
}

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

func TestDispatcher_PartialFailure(t *testing.T) {
	email := &fakeChannel{name: delivery.ChannelEmail, configured: true}
	tg := &fakeChannel{name: delivery.ChannelTelegram, configured: true, err: errors.New("telegram down")}
	push := &fakeChannel{name: delivery.ChannelWebPush, configured: true}
	d := NewDispatcher(nil, email, tg, push)

	r := resultRule(t, rules.ChannelEmail, rules.ChannelTelegram, rules.ChannelDiscord, rules.ChannelWebPush)
	report, err := d.Deliver(context.Background(), r, "fan@example.com", []Event{{EventID: "e1", Title: "x"}})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !report.OK() || len(report.Delivered) != 2 {
		t.Fatalf("delivered=%v", report.Delivered)
	}
	if len(report.FailedChannels) != 2 || report.Errors[rules.ChannelDiscord] != delivery.ErrNotConfigured.Error() {
		t.Fatalf("failed=%v errors=%v", report.FailedChannels, report.Errors)
	}
	if len(report.Notes) != 1 {
		t.Fatalf("notes=%v", report.Notes)
	}
}

func TestDispatcher_EmailFailureIsFatal(t *testing.T) {
	email := &fakeChannel{name: delivery.ChannelEmail, configured: true, err: errors.New("535 auth failed")}
	tg := &fakeChannel{name: delivery.ChannelTelegram, configured: true}
	d := NewDispatcher(nil, email, tg)

	r := resultRule(t, rules.ChannelEmail, rules.ChannelTelegram)
	if _, err := d.Deliver(context.Background(), r, "fan@example.com", []Event{{EventID: "e1"}}); err == nil {
		t.Fatal("expected email failure")
	}
	if tg.count() != 0 {
		t.Fatal("other channels must not send after an email failure")
	}

	unconfigured := NewDispatcher(nil, &fakeChannel{name: delivery.ChannelEmail})
	if _, err := unconfigured.Deliver(context.Background(), r, "fan@example.com", []Event{{EventID: "e1"}}); !errors.Is(err, ErrEmailUnavailable) {
		t.Fatalf("err=%v, want ErrEmailUnavailable", err)
	}
	if unconfigured.EmailReady() {
		t.Fatal("EmailReady with unconfigured channel")
	}
}

func TestDispatcher_SendTest(t *testing.T) {
	email := &fakeChannel{name: delivery.ChannelEmail, configured: true}
	if err := NewDispatcher(nil, email).SendTest(context.Background(), "fan@example.com"); err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if email.count() != 1 || email.sent[0].To != "fan@example.com" {
		t.Fatalf("sent=%+v", email.sent)
	}
	if err := NewDispatcher(nil).SendTest(context.Background(), "x@example.com"); !errors.Is(err, ErrEmailUnavailable) {
		t.Fatalf("err=%v", err)
	}
}

// --------------------------------------------------------------------------
// Coordinator
// --------------------------------------------------------------------------

func TestRun_DedupIdempotent(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, resultRule(t))
	h.source.bundle = resultBundle()
	ctx := context.Background()

	first := h.coord.Run(ctx, TriggerManual)
	if !first.OK || first.EventsSent != 2 {
		t.Fatalf("first run: %+v", first)
	}
	second := h.coord.Run(ctx, TriggerSchedule)
	if !second.OK || second.EventsSent != 0 || second.EventsDetected != 0 {
		t.Fatalf("second run: %+v", second)
	}
	if h.email.count() != 1 {
		t.Fatalf("emails=%d, want 1", h.email.count())
	}

	doc := h.load(t)
	if len(doc.SentEvents) != 2 {
		t.Fatalf("sent_events=%d", len(doc.SentEvents))
	}
	if len(doc.History) != 1 || doc.History[0].Level != store.LevelInfo {
		t.Fatalf("history=%+v", doc.History)
	}
	state := doc.RuleState[doc.Rules[0].ID]
	if state == nil || state.LastSentAt == nil || !state.LastSentAt.Equal(testNow) {
		t.Fatalf("rule state=%+v", state)
	}
}

func TestRun_SingleFlight(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, resultRule(t))
	h.source.bundle = resultBundle()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.source.onFetch = func() {
		close(entered)
		<-release
	}

	done := make(chan RunResult)
	go func() { done <- h.coord.Run(context.Background(), TriggerSchedule) }()
	<-entered

	if !h.coord.Running() {
		t.Fatal("Running should report the in-flight run")
	}
	busy := h.coord.Run(context.Background(), TriggerManual)
	if busy.OK || busy.Message != runBusyMessage {
		t.Fatalf("concurrent run: %+v", busy)
	}

	close(release)
	if res := <-done; !res.OK || res.EventsSent != 2 {
		t.Fatalf("first run: %+v", res)
	}
	if n := h.source.fetches.Load(); n != 1 {
		t.Fatalf("fetches=%d, want 1", n)
	}
	if h.coord.Running() {
		t.Fatal("lock not released")
	}
}

func TestRun_FailedDeliveryKeepsEventsPending(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, mustRule(t, func(r *rules.Rule) { r.EventType = rules.LiveMatchStarts }))
	h.source.bundle = match.Bundle{Live: []match.Canonical{{ID: "live-1", Tour: match.TourATP, Status: match.StatusLive}}}
	h.email.err = errors.New("smtp timeout")

	res := h.coord.Run(context.Background(), TriggerManual)
	if !res.OK || res.FailedRules != 1 || res.EventsSent != 0 {
		t.Fatalf("failed run: %+v", res)
	}
	doc := h.load(t)
	if len(doc.SentEvents) != 0 {
		t.Fatal("failed delivery must not mark events sent")
	}
	if st := doc.RuleState[doc.Rules[0].ID]; st != nil && st.SeenLive("live-1") {
		t.Fatal("failed delivery must not commit live_seen")
	}
	if len(doc.History) != 1 || doc.History[0].Level != store.LevelError {
		t.Fatalf("history=%+v", doc.History)
	}

	h.email.err = nil
	if res := h.coord.Run(context.Background(), TriggerManual); res.EventsSent != 1 {
		t.Fatalf("retry run: %+v", res)
	}
}

func TestRun_PartialChannelFailureStillMarksSent(t *testing.T) {
	tg := &fakeChannel{name: delivery.ChannelTelegram, configured: true, err: errors.New("429")}
	h := newHarness(t, tg)
	h.addRule(t, resultRule(t, rules.ChannelEmail, rules.ChannelTelegram))
	h.source.bundle = resultBundle()

	res := h.coord.Run(context.Background(), TriggerManual)
	if !res.OK || res.EventsSent != 2 {
		t.Fatalf("run: %+v", res)
	}
	doc := h.load(t)
	if len(doc.SentEvents) != 2 {
		t.Fatalf("sent_events=%d", len(doc.SentEvents))
	}
	var warned bool
	for _, e := range doc.History {
		if e.Level == store.LevelWarning {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a warning entry: %+v", doc.History)
	}
}

func TestRun_QuietHoursAndCooldownSkip(t *testing.T) {
	h := newHarness(t)
	quiet := resultRule(t)
	quiet.QuietHours = rules.QuietHours{Enabled: true, StartHour: 13, EndHour: 15, TimezoneOffset: "+00:00"}
	h.addRule(t, quiet)

	cooling := resultRule(t)
	cooling.ID = "cooling"
	cooling.CooldownMinutes = 10
	h.addRule(t, cooling)
	last := testNow.Add(-5 * time.Minute)
	if _, err := h.repo.Update(context.Background(), func(doc *store.Document) error {
		doc.StateFor("cooling").LastSentAt = &last
		return nil
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	h.source.bundle = resultBundle()

	res := h.coord.Run(context.Background(), TriggerSchedule)
	if !res.OK || res.RulesSkipped != 2 || res.RulesEvaluated != 0 || h.email.count() != 0 {
		t.Fatalf("run: %+v", res)
	}
}

func TestRun_PreconditionsShortCircuit(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t)
	h.addRule(t, resultRule(t))
	if _, err := h.repo.Update(ctx, func(doc *store.Document) error {
		doc.Email = ""
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if res := h.coord.Run(ctx, TriggerManual); res.OK {
		t.Fatalf("missing email should fail: %+v", res)
	}
	if h.source.fetches.Load() != 0 {
		t.Fatal("no fetch without a recipient")
	}
	if len(h.load(t).History) != 0 {
		t.Fatal("missing recipient must not write history")
	}

	h2 := newHarness(t)
	if _, err := h2.repo.Update(ctx, func(doc *store.Document) error {
		doc.Enabled = false
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if res := h2.coord.Run(ctx, TriggerManual); !res.OK || h2.source.fetches.Load() != 0 {
		t.Fatalf("disabled run: %+v", res)
	}

	h3 := newHarness(t)
	if res := h3.coord.Run(ctx, TriggerManual); !res.OK || res.Message != "no enabled rules" {
		t.Fatalf("empty run: %+v", res)
	}
}

func TestRun_MergesConcurrentRuleEdits(t *testing.T) {
	h := newHarness(t)
	first := resultRule(t)
	h.addRule(t, first)
	h.source.bundle = resultBundle()

	added := resultRule(t)
	added.ID = "added-mid-run"
	h.source.onFetch = func() {
		h.addRule(t, added)
		if _, err := h.repo.Update(context.Background(), func(doc *store.Document) error {
			return doc.DeleteRule(first.ID)
		}); err != nil {
			t.Errorf("delete: %v", err)
		}
	}

	if res := h.coord.Run(context.Background(), TriggerManual); !res.OK {
		t.Fatalf("run: %+v", res)
	}
	doc := h.load(t)
	if doc.RuleIndex("added-mid-run") < 0 {
		t.Fatal("rule added during the run was lost")
	}
	if _, ok := doc.RuleState[first.ID]; ok {
		t.Fatal("state for a rule deleted mid-run must be dropped")
	}
}

func TestRun_RankingRuleFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, mustRule(t, func(r *rules.Rule) {
		r.EventType = rules.RankingMilestone
		r.TrackedPlayer = "Sinner"
		r.Params.EmitOnFirstSeen = true
	}))
	h.source.rankings = fakeRankings{"atp": {{Tour: "ATP", Name: "Jannik Sinner", Rank: intp(9)}}}

	if res := h.coord.Run(context.Background(), TriggerManual); res.EventsSent != 1 {
		t.Fatalf("first run: %+v", res)
	}
	if res := h.coord.Run(context.Background(), TriggerManual); res.EventsSent != 0 || res.EventsDetected != 0 {
		t.Fatalf("second run: %+v", res)
	}
}

// ctxBackend fails writes once ctx is done, the way a pgx Exec does.
type ctxBackend struct{ *store.FileBackend }

func (b ctxBackend) Name() string { return "ctx" }

func (b ctxBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.FileBackend.Write(ctx, data)
}

// cancelOnSend cancels the caller's context right after delivering.
type cancelOnSend struct {
	fakeChannel
	cancel context.CancelFunc
}

func (c *cancelOnSend) Send(ctx context.Context, msg delivery.Message) error {
	err := c.fakeChannel.Send(ctx, msg)
	c.cancel()
	return err
}

func TestRun_CancelledContextStillRecordsDelivery(t *testing.T) {
	backend := ctxBackend{store.NewFileBackend(filepath.Join(t.TempDir(), "store.json"))}
	repo := store.NewRepository(backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	email := &cancelOnSend{fakeChannel: fakeChannel{name: delivery.ChannelEmail, configured: true}, cancel: cancel}
	src := &fakeSource{bundle: resultBundle()}
	coord := NewCoordinator(repo, src, NewDispatcher(nil, email), nil)
	coord.Now = func() time.Time { return testNow }

	r := resultRule(t)
	if _, err := repo.Update(context.Background(), func(doc *store.Document) error {
		doc.Email = "fan@example.com"
		return doc.AddRule(r)
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	first := coord.Run(ctx, TriggerManual)
	if !first.OK || first.EventsSent != 2 {
		t.Fatalf("first run: %+v", first)
	}
	if ctx.Err() == nil {
		t.Fatal("channel should have cancelled the run context")
	}

	second := coord.Run(context.Background(), TriggerSchedule)
	if !second.OK || second.EventsSent != 0 {
		t.Fatalf("second run: %+v", second)
	}
	if email.count() != 1 {
		t.Fatalf("emails=%d, want 1", email.count())
	}

	doc, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.SentEvents) != 2 {
		t.Fatalf("sent_events=%d", len(doc.SentEvents))
	}
	if st := doc.RuleState[r.ID]; st == nil || st.LastSentAt == nil {
		t.Fatalf("rule state not saved: %+v", st)
	}
}
