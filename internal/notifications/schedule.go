package notifications

import (
	"time"

	"github.com/albapepper/tennis-alerts/internal/rules"
)

// InQuietHours reports whether now falls in the rule's quiet window, in the
// rule's local time. The window is half-open [start, end); start > end wraps
// past midnight and start == end is never quiet.
func InQuietHours(r rules.Rule, now time.Time) bool {
	q := r.QuietHours
	if !q.Enabled {
		return false
	}
	offset, ok := rules.ParseOffset(q.TimezoneOffset)
	if !ok {
		offset = 0
	}
	hour := now.UTC().Add(time.Duration(offset) * time.Minute).Hour()
	return isQuietHour(hour, q.StartHour, q.EndHour)
}

func isQuietHour(hour, start, end int) bool {
	switch {
	case start == end:
		return false
	case start < end:
		return hour >= start && hour < end
	default:
		return hour >= start || hour < end
	}
}

// InCooldown reports whether the rule sent within its cooldown window.
func InCooldown(r rules.Rule, lastSentAt *time.Time, now time.Time) bool {
	if r.CooldownMinutes <= 0 || lastSentAt == nil {
		return false
	}
	return now.Sub(*lastSentAt) < time.Duration(r.CooldownMinutes)*time.Minute
}

// SentChecker reports whether an event id was already delivered.
type SentChecker interface {
	IsSent(eventID string) bool
}

// FilterNew drops events whose id is already in the dedup table.
func FilterNew(events []Event, sent SentChecker) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !sent.IsSent(e.EventID) {
			out = append(out, e)
		}
	}
	return out
}
