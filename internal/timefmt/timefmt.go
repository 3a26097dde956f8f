// Package timefmt converts YouTrack epoch-millisecond timestamps into
// ISO 8601 strings and enriches API payloads with readable variants.
package timefmt

import (
	"encoding/json"
	"time"
)

// Fields recognized as epoch-millisecond timestamps in YouTrack payloads.
var timestampFields = []string{"created", "updated", "date"}

// ISO8601 formats an epoch-millisecond timestamp as ISO 8601 in UTC.
func ISO8601(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.999999-07:00")
}

// Enrich walks a decoded JSON payload and, for every timestamp field holding
// a numeric value, adds a sibling "<field>_iso8601" entry. Maps are copied
// rather than mutated so callers can keep the raw response around.
func Enrich(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v)+2)
		for k, val := range v {
			out[k] = val
		}
		for _, field := range timestampFields {
			if ms, ok := asMillis(out[field]); ok {
				out[field+"_iso8601"] = ISO8601(ms)
			}
		}
		for k, val := range out {
			switch val.(type) {
			case map[string]any, []any:
				out[k] = Enrich(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Enrich(item)
		}
		return out
	default:
		return data
	}
}

// asMillis accepts the numeric types a decoded JSON payload may carry.
// Fractional floats are not timestamps and are rejected.
func asMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
