package tennis

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL+"/", "secret", 60000, 0, logger)
}

func TestFetchBundle_QueriesAndShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live-scores", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tour") != "both" {
			t.Errorf("live tour=%q", r.URL.Query().Get("tour"))
		}
		if r.Header.Get("Authorization") != "secret" {
			t.Errorf("missing auth header")
		}
		io.WriteString(w, `[{"id":"m1","tour":"ATP","player1":"A","player2":"B","round":"Final"}]`)
	})
	mux.HandleFunc("/upcoming-matches", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("days") != "7" {
			t.Errorf("upcoming days=%q", r.URL.Query().Get("days"))
		}
		io.WriteString(w, `{"matches":[{"id":"u1"},{"id":"u2"},"junk"]}`)
	})
	mux.HandleFunc("/recent-matches", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "120" {
			t.Errorf("recent limit=%q", r.URL.Query().Get("limit"))
		}
		io.WriteString(w, `{"data":[{"id":"r1","winner":1,"player1":"A","player2":"B"}]}`)
	})
	c := newTestClient(t, mux)

	b := c.FetchBundle(context.Background())
	if len(b.Live) != 1 || len(b.Upcoming) != 2 || len(b.Recent) != 1 {
		t.Fatalf("bundle sizes live=%d upcoming=%d recent=%d", len(b.Live), len(b.Upcoming), len(b.Recent))
	}
	if b.Live[0].RoundLabel != "F" || b.Live[0].Status != "live" {
		t.Fatalf("live match=%+v", b.Live[0])
	}
	if b.Recent[0].WinnerName != "A" {
		t.Fatalf("recent winner=%q", b.Recent[0].WinnerName)
	}
}

func TestList_FailuresDegradeToEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live-scores", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	mux.HandleFunc("/upcoming-matches", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"unexpected": true}`)
	})
	mux.HandleFunc("/recent-matches", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})
	c := newTestClient(t, mux)

	b := c.FetchBundle(context.Background())
	if b.Size() != 0 || b.Live == nil || b.Upcoming == nil || b.Recent == nil {
		t.Fatalf("expected empty non-nil lists, got %+v", b)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 8; i++ {
		if got := c.Tournaments(context.Background(), "atp"); len(got) != 0 {
			t.Fatalf("expected empty result, got %v", got)
		}
	}
	if n := hits.Load(); n != 5 {
		t.Fatalf("upstream hits=%d, want 5 before the breaker opens", n)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	for i := 0; i < 8; i++ {
		c.Tournaments(context.Background(), "wta")
	}
	if n := hits.Load(); n != 8 {
		t.Fatalf("upstream hits=%d, want 8", n)
	}
}

func TestRankingsAndSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rankings/wta", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("limit=%q", r.URL.Query().Get("limit"))
		}
		io.WriteString(w, `{"rankings":[
			{"rank":1,"player":{"name":"Iga Swiatek","career_high":1,"titles":22}},
			{"ranking":"#9","name":"Paula Badosa","titles":"4"},
			{"rank":10}
		]}`)
	})
	mux.HandleFunc("/h2h/atp/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "sin" {
			t.Errorf("query=%q", r.URL.Query().Get("query"))
		}
		io.WriteString(w, `{"players":[{"name":"Jannik Sinner"},{"name":"jannik sinner"},{"full_name":"Sinja Kraus"}]}`)
	})
	c := newTestClient(t, mux)

	rows := c.Rankings(context.Background(), "WTA", 50)
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[0].Key() != "wta:iga swiatek" || *rows[0].Titles != 22 || *rows[0].CareerHigh != 1 {
		t.Fatalf("row0=%+v", rows[0])
	}
	if *rows[1].Rank != 9 || *rows[1].Titles != 4 {
		t.Fatalf("row1=%+v", rows[1])
	}

	names := c.SearchPlayers(context.Background(), "atp", "sin", 5)
	if len(names) != 2 || names[0] != "Jannik Sinner" || names[1] != "Sinja Kraus" {
		t.Fatalf("names=%v", names)
	}
}
