package logging

import (
	"encoding/json"
	"strings"
)

// DefaultSensitivePatterns are field-name fragments whose values are never
// written out verbatim. Matching is case-insensitive substring.
var DefaultSensitivePatterns = []string{
	"password", "token", "secret", "key", "authorization", "cookie", "session",
}

const (
	redactedMarker      = "[REDACTED]"
	depthExceededMarker = "[MAX_DEPTH_EXCEEDED]"
	maxRedactDepth      = 5
)

// Redact returns a copy of v with every value under a sensitive key replaced
// by a marker. Containers nested deeper than maxRedactDepth levels are cut
// off wholesale, which guarantees termination on arbitrarily deep input.
// A nil patterns slice selects DefaultSensitivePatterns.
func Redact(v interface{}, patterns []string) interface{} {
	if patterns == nil {
		patterns = DefaultSensitivePatterns
	}
	return redactValue(v, patterns, 0)
}

func redactValue(v interface{}, patterns []string, depth int) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if depth >= maxRedactDepth {
			return depthExceededMarker
		}
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if isSensitiveKey(k, patterns) {
				out[k] = redactedMarker
				continue
			}
			out[k] = redactValue(child, patterns, depth+1)
		}
		return out
	case []interface{}:
		if depth >= maxRedactDepth {
			return depthExceededMarker
		}
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = redactValue(child, patterns, depth+1)
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string, patterns []string) bool {
	lower := strings.ToLower(key)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// normalize round-trips v through JSON so structs become generic maps and
// Redact can see their keys. On marshal failure v is returned untouched.
func normalize(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// TruncatedPayload stands in for an oversized payload in the log output.
type TruncatedPayload struct {
	Truncated      bool   `json:"truncated"`
	OriginalLength int    `json:"originalLength"`
	Preview        string `json:"preview"`
}

// Truncate serializes v and, when the result exceeds max bytes, swaps it for
// a wrapper carrying the original length and a prefix of the serialized form.
// max <= 0 disables truncation.
func Truncate(v interface{}, max int) interface{} {
	if max <= 0 {
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	if len(b) <= max {
		return v
	}
	return TruncatedPayload{
		Truncated:      true,
		OriginalLength: len(b),
		Preview:        string(b[:max]),
	}
}
