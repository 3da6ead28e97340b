package match

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	roundOfRe  = regexp.MustCompile(`round of (\d+)`)
	roundRRe   = regexp.MustCompile(`^r(128|64|32|16)$`)
	qualRe     = regexp.MustCompile(`^q\d?$|^q-?r\d$`)
	setTokenRe = regexp.MustCompile(`^(\d+)-(\d+)(?:\((\d+)\))?$`)
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalize converts one raw match payload into the canonical shape.
// fallback is the status implied by the feed the payload came from and is
// used when the payload carries no recognizable status of its own.
func Normalize(raw map[string]interface{}, fallback Status) Canonical {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	m := Canonical{
		Tour:          normalizeTour(firstString(raw, "tour", "circuit")),
		Status:        normalizeStatus(firstString(raw, "status", "state"), fallback),
		Tournament:    firstString(raw, "tournament", "tournament_name", "event", "event_name"),
		Surface:       strings.ToLower(firstString(raw, "surface", "court_surface")),
		Round:         firstString(raw, "round", "round_name", "stage"),
		ScheduledTime: firstString(raw, "scheduled_time", "start_time", "scheduled_at", "date", "time"),
		Player1:       normalizePlayer(raw, 1),
		Player2:       normalizePlayer(raw, 2),
	}
	m.Category = NormalizeCategory(firstString(raw, "category", "tournament_category", "level", "tier"), m.Tour)
	m.RoundLabel = RoundLabel(m.Round)
	m.RoundRank = RoundRank(m.RoundLabel)
	m.Scheduled = ParseTime(m.ScheduledTime)
	m.Score = parseSets(raw["score"])
	m.FinalScore = parseSets(raw["final_score"])
	m.WinnerName = resolveWinner(firstValue(raw, "winner", "winner_id", "winner_name"), m.Player1.Name, m.Player2.Name)

	m.ID = firstString(raw, "id", "match_id")
	if m.ID == "" {
		m.ID = GenerateID(m.Tour, m.Tournament, m.Round, m.Player1.Name, m.Player2.Name, m.ScheduledTime)
	}
	return m
}

// NormalizeAll normalizes a list of raw payloads with the same fallback status.
func NormalizeAll(raws []map[string]interface{}, fallback Status) []Canonical {
	out := make([]Canonical, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r, fallback))
	}
	return out
}

// NormalizeBundle normalizes the three feeds into a Bundle.
func NormalizeBundle(live, upcoming, recent []map[string]interface{}) Bundle {
	return Bundle{
		Live:     NormalizeAll(live, StatusLive),
		Upcoming: NormalizeAll(upcoming, StatusUpcoming),
		Recent:   NormalizeAll(recent, StatusFinished),
	}
}

// GenerateID derives a stable id for payloads without one. Identical logical
// matches always map to the same id across independent polls.
func GenerateID(tour, tournament, round, p1, p2, scheduled string) string {
	sum := sha1.Sum([]byte(strings.Join([]string{tour, tournament, round, p1, p2, scheduled}, "|")))
	return "generated_" + hex.EncodeToString(sum[:])[:16]
}

// RoundLabel maps a raw round name onto the fixed label vocabulary.
func RoundLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return RoundUnknown
	}

	if strings.Contains(s, "qualif") || qualRe.MatchString(s) {
		return RoundQual
	}
	if m := roundOfRe.FindStringSubmatch(s); m != nil {
		switch m[1] {
		case "128", "64", "32", "16":
			return "R" + m[1]
		case "8":
			return RoundQF
		case "4":
			return RoundSF
		case "2":
			return RoundF
		}
	}
	if roundRRe.MatchString(s) {
		return strings.ToUpper(s)
	}

	switch {
	case strings.Contains(s, "quarter") || s == "qf":
		return RoundQF
	case strings.Contains(s, "semi") || s == "sf":
		return RoundSF
	case strings.Contains(s, "final") || s == "f":
		return RoundF
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeCategory maps free-form tournament levels onto the category enum.
func NormalizeCategory(raw, tour string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range Categories {
		if s == c {
			return c
		}
	}

	wta := tour == TourWTA || strings.Contains(s, "wta")
	switch {
	case s == "":
		return CategoryOther
	case strings.Contains(s, "grand slam") || strings.Contains(s, "grand_slam") || s == "slam":
		return CategoryGrandSlam
	case strings.Contains(s, "challenger"):
		return CategoryChallenger
	case strings.Contains(s, "itf"):
		return CategoryITF
	case strings.Contains(s, "finals"):
		return CategoryFinals
	case strings.Contains(s, "1000") || strings.Contains(s, "masters"):
		if wta {
			return CategoryWTA1000
		}
		return CategoryMasters1000
	case strings.Contains(s, "500"):
		if wta {
			return CategoryWTA500
		}
		return CategoryATP500
	case strings.Contains(s, "250"):
		if wta {
			return CategoryWTA250
		}
		return CategoryATP250
	}
	return CategoryOther
}

// ParseTime parses the scheduled-time formats seen upstream. Values without a
// zone are treated as UTC. Returns the zero time when unparseable.
func ParseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func normalizeTour(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case TourATP:
		return TourATP
	case TourWTA:
		return TourWTA
	}
	return ""
}

func normalizeStatus(raw string, fallback Status) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return fallback
	case s == "live" || strings.Contains(s, "progress") || s == "playing" || s == "inplay":
		return StatusLive
	case strings.Contains(s, "finish") || strings.Contains(s, "complet") || s == "ended" ||
		s == "ft" || strings.Contains(s, "retire") || strings.Contains(s, "walkover") || s == "w/o":
		return StatusFinished
	case s == "upcoming" || s == "scheduled" || s == "not started" || s == "not_started":
		return StatusUpcoming
	}
	return Status(s)
}

func normalizePlayer(raw map[string]interface{}, idx int) Player {
	n := strconv.Itoa(idx)
	side := "home"
	if idx == 2 {
		side = "away"
	}

	var p Player
	if obj, ok := firstValue(raw, "player"+n, "p"+n, side).(map[string]interface{}); ok {
		p.Name = firstString(obj, "name", "full_name", "player_name")
		p.Rank = intPtr(firstValue(obj, "rank", "ranking", "seed_rank"))
		p.CareerHigh = intPtr(firstValue(obj, "career_high", "career_high_rank"))
		p.Country = firstString(obj, "country", "nationality", "country_code")
	} else {
		p.Name = firstString(raw, "player"+n, "p"+n, side)
	}

	if p.Name == "" {
		p.Name = firstString(raw, "player"+n+"_name", "p"+n+"_name")
	}
	if p.Rank == nil {
		p.Rank = intPtr(firstValue(raw, "player"+n+"_rank", "p"+n+"_rank"))
	}
	if p.Country == "" {
		p.Country = firstString(raw, "player"+n+"_country", "p"+n+"_country")
	}
	return p
}

func resolveWinner(v interface{}, p1, p2 string) string {
	s := strings.ToLower(ExtractString(v))
	switch s {
	case "":
		return ""
	case "1", "p1", "player1", "player_1", "home":
		return p1
	case "2", "p2", "player2", "player_2", "away":
		return p2
	}
	if p1 != "" && strings.EqualFold(s, p1) {
		return p1
	}
	if p2 != "" && strings.EqualFold(s, p2) {
		return p2
	}
	return ""
}

// parseSets accepts a list of set objects, a list of [p1,p2] pairs, or a
// score string such as "6-4 3-6 7-6(5)".
func parseSets(v interface{}) []SetScore {
	switch val := v.(type) {
	case string:
		return parseScoreString(val)
	case []interface{}:
		out := make([]SetScore, 0, len(val))
		for _, item := range val {
			if s, ok := parseSet(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseSet(item interface{}) (SetScore, bool) {
	switch v := item.(type) {
	case map[string]interface{}:
		p1, ok1 := ExtractInt(firstValue(v, "p1", "player1", "home", "a"))
		p2, ok2 := ExtractInt(firstValue(v, "p2", "player2", "away", "b"))
		if !ok1 || !ok2 {
			return SetScore{}, false
		}
		s := SetScore{P1: p1, P2: p2}
		switch tb := firstValue(v, "tiebreak", "tb").(type) {
		case map[string]interface{}:
			s.TiebreakP1 = intPtrAny(firstValue(tb, "p1", "player1", "home"))
			s.TiebreakP2 = intPtrAny(firstValue(tb, "p2", "player2", "away"))
		case nil:
		default:
			if n, ok := ExtractInt(tb); ok {
				setLoserTiebreak(&s, n)
			}
		}
		if s.TiebreakP1 == nil {
			s.TiebreakP1 = intPtrAny(v["tiebreak_p1"])
		}
		if s.TiebreakP2 == nil {
			s.TiebreakP2 = intPtrAny(v["tiebreak_p2"])
		}
		return s, true
	case []interface{}:
		if len(v) < 2 {
			return SetScore{}, false
		}
		p1, ok1 := ExtractInt(v[0])
		p2, ok2 := ExtractInt(v[1])
		if !ok1 || !ok2 {
			return SetScore{}, false
		}
		s := SetScore{P1: p1, P2: p2}
		if len(v) > 2 {
			if n, ok := ExtractInt(v[2]); ok {
				setLoserTiebreak(&s, n)
			}
		}
		return s, true
	case string:
		sets := parseScoreString(v)
		if len(sets) == 1 {
			return sets[0], true
		}
	}
	return SetScore{}, false
}

func parseScoreString(s string) []SetScore {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == ';' })
	out := make([]SetScore, 0, len(fields))
	for _, f := range fields {
		m := setTokenRe.FindStringSubmatch(strings.TrimSpace(f))
		if m == nil {
			continue
		}
		p1, _ := strconv.Atoi(m[1])
		p2, _ := strconv.Atoi(m[2])
		set := SetScore{P1: p1, P2: p2}
		if m[3] != "" {
			tb, _ := strconv.Atoi(m[3])
			setLoserTiebreak(&set, tb)
		}
		out = append(out, set)
	}
	return out
}

// setLoserTiebreak records the conventional "7-6(5)" notation, where the
// bracketed number is the set loser's tiebreak points.
func setLoserTiebreak(s *SetScore, loserPoints int) {
	winnerPoints := max(7, loserPoints+2)
	lp, wp := loserPoints, winnerPoints
	if s.P1 >= s.P2 {
		s.TiebreakP1, s.TiebreakP2 = &wp, &lp
	} else {
		s.TiebreakP1, s.TiebreakP2 = &lp, &wp
	}
}

func intPtrAny(v interface{}) *int {
	n, ok := ExtractInt(v)
	if !ok {
		return nil
	}
	return &n
}
