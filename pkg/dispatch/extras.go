package dispatch

import (
	"fmt"
	"math"
)

// Extension keys read from Tunables.Extra. Unknown keys are ignored.
const (
	ExtraTopP   = "top_p"
	ExtraTopK   = "top_k"
	ExtraSeed   = "seed"
	ExtraSystem = "system"
	ExtraStop   = "stop"
)

func extraFloat(extra map[string]any, key string) (float64, bool) {
	switch v := extra[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func extraInt(extra map[string]any, key string) (int64, bool) {
	switch v := extra[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func extraString(extra map[string]any, key string) (string, bool) {
	v, ok := extra[key].(string)
	return v, ok && v != ""
}

// extraStrings accepts a single string or a list of scalars.
func extraStrings(extra map[string]any, key string) []string {
	switch v := extra[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
