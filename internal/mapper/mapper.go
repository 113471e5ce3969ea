package mapper

import (
	"strings"

	"github.com/rs/zerolog"
)

// Mapper translates one parser extraction into updates against the three
// domain forms. All fill methods are total: malformed entries are dropped
// and logged, never surfaced as errors, and no method performs I/O.
type Mapper struct {
	Log zerolog.Logger
}

func New(log zerolog.Logger) Mapper {
	return Mapper{Log: log}
}

// asString returns a trimmed string value, or "" when the value is not a
// string or is whitespace-only.
func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// asInt accepts the numeric shapes a JSON decode can produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// asStringSlice tolerates both []string and the []any a generic JSON
// decode produces. Non-string elements become "".
func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, len(s))
		for i, e := range s {
			if str, ok := e.(string); ok {
				out[i] = str
			}
		}
		return out
	}
	return nil
}
