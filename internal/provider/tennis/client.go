// Package tennis provides the HTTP client for the tennis data API.
//
// Every call is best-effort: a non-2xx status, a malformed body, a transport
// error or an open circuit breaker degrades to an empty list so a detection
// run never aborts on upstream trouble. Requests are paced by a token bucket
// limiter and guarded by a circuit breaker.
package tennis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/albapepper/tennis-alerts/internal/match"
	"github.com/albapepper/tennis-alerts/internal/metrics"
)

const (
	breakerName   = "tennis-api"
	upcomingDays  = 7
	recentLimit   = 120
	maxBodyLength = 8 << 20
)

// listKeys are the object keys a list response may be wrapped under.
var listKeys = []string{"matches", "data", "items", "rankings", "tournaments", "players", "results"}

// statusError is a non-2xx upstream response.
type statusError struct {
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tennis API %s returned %d: %s", e.path, e.status, e.body)
}

// Client is the shared HTTP client for all data API endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

// NewClient creates a data API client with rate limiting and a circuit
// breaker. A zero timeout defaults to 20 seconds.
func NewClient(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	rps := float64(requestsPerMinute) / 60.0

	metrics.BreakerState.WithLabelValues(breakerName).Set(0)
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx responses mean a bad request, not an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Tennis API breaker state change", "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    breaker,
		logger:     logger,
	}
}

// --------------------------------------------------------------------------
// Endpoints
// --------------------------------------------------------------------------

// FetchBundle fetches live, upcoming and recent matches and normalizes them.
func (c *Client) FetchBundle(ctx context.Context) match.Bundle {
	live := c.list(ctx, "live", "/live-scores", url.Values{"tour": {"both"}})
	upcoming := c.list(ctx, "upcoming", "/upcoming-matches", url.Values{
		"tour": {"both"},
		"days": {strconv.Itoa(upcomingDays)},
	})
	recent := c.list(ctx, "recent", "/recent-matches", url.Values{
		"tour":  {"both"},
		"limit": {strconv.Itoa(recentLimit)},
	})
	return match.NormalizeBundle(live, upcoming, recent)
}

// Rankings fetches the ranking table of one tour ("atp" or "wta").
func (c *Client) Rankings(ctx context.Context, tour string, limit int) []match.RankingEntry {
	tour = strings.ToLower(tour)
	raws := c.list(ctx, "rankings", "/rankings/"+url.PathEscape(tour), url.Values{
		"limit": {strconv.Itoa(limit)},
	})
	return match.NormalizeRankings(raws, tour)
}

// Tournaments returns tournament names for one tour.
func (c *Client) Tournaments(ctx context.Context, tour string) []string {
	raws := c.list(ctx, "tournaments", "/tournaments/"+url.PathEscape(strings.ToLower(tour)), nil)
	return match.Names(raws, "name", "tournament", "tournament_name", "title")
}

// SearchPlayers returns player names matching query for one tour.
func (c *Client) SearchPlayers(ctx context.Context, tour, query string, limit int) []string {
	raws := c.list(ctx, "h2h_search", "/h2h/"+url.PathEscape(strings.ToLower(tour))+"/search", url.Values{
		"query": {query},
		"limit": {strconv.Itoa(limit)},
	})
	return match.Names(raws, "name", "full_name", "player_name")
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

// list performs a GET and decodes a list payload, degrading every failure to
// an empty slice.
func (c *Client) list(ctx context.Context, endpoint, path string, params url.Values) []map[string]interface{} {
	metrics.UpstreamRequests.WithLabelValues(endpoint).Inc()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, path, params)
	})
	if err != nil {
		reason := "transport"
		var se *statusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			reason = "breaker"
		case errors.As(err, &se):
			reason = "status"
		}
		metrics.UpstreamFailures.WithLabelValues(endpoint, reason).Inc()
		c.logger.Warn("Tennis API request failed", "endpoint", endpoint, "reason", reason, "error", err)
		return []map[string]interface{}{}
	}

	items, err := decodeList(body)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues(endpoint, "decode").Inc()
		c.logger.Warn("Tennis API response malformed", "endpoint", endpoint, "error", err, "body", truncate(body, 200))
		return []map[string]interface{}{}
	}
	return items
}

// get performs a rate-limited GET request.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLength))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{path: path, status: resp.StatusCode, body: truncate(body, 200)}
	}
	return body, nil
}

// decodeList accepts a bare JSON array or an object wrapping the array under
// one of listKeys. Non-object array elements are skipped.
func decodeList(body []byte) ([]map[string]interface{}, error) {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var arr []interface{}
	switch v := payload.(type) {
	case []interface{}:
		arr = v
	case map[string]interface{}:
		for _, k := range listKeys {
			if inner, ok := v[k].([]interface{}); ok {
				arr = inner
				break
			}
		}
		if arr == nil {
			return nil, fmt.Errorf("no list under %s", strings.Join(listKeys, "/"))
		}
	default:
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}

	out := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
