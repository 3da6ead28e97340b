package match

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ExtractValue normalizes a numeric value from the various upstream formats.
//
// The data API returns plain numbers for some feeds, numeric strings for
// others, and occasionally nested objects such as {"value": 12}.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func ExtractValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "#"))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		return 0, false
	case map[string]interface{}:
		for _, key := range []string{"value", "current", "rank", "total"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// ExtractInt is ExtractValue truncated to an int. Non-finite values fail.
func ExtractInt(val interface{}) (int, bool) {
	f, ok := ExtractValue(val)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// ExtractString renders scalars as strings; maps and slices yield "".
func ExtractString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// firstString returns the first non-empty string under any of keys.
func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := ExtractString(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstValue returns the first non-nil value under any of keys.
func firstValue(raw map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// intPtr extracts an optional positive integer.
func intPtr(val interface{}) *int {
	n, ok := ExtractInt(val)
	if !ok || n <= 0 {
		return nil
	}
	return &n
}
