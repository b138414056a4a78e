package mapsafe

import (
	"encoding/json"
	"fmt"
)

// Get retrieves a typed value from a decoded JSON object.
// Numbers are converted between int, int64 and float64 as needed. If the key
// is missing or the value cannot be converted, defaultValue is returned.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case int:
		if n, ok := toFloat(val); ok {
			return any(int(n)).(T)
		}
	case int64:
		if n, ok := toFloat(val); ok {
			return any(int64(n)).(T)
		}
	case float64:
		if n, ok := toFloat(val); ok {
			return any(n).(T)
		}
	case string:
		switch x := val.(type) {
		case string:
			return any(x).(T)
		case []any:
			// Shapes arrive as JSON arrays; render them the way Python prints tuples.
			return any(fmt.Sprint(x)).(T)
		}
	case bool:
		if b, ok := val.(bool); ok {
			return any(b).(T)
		}
	default:
		if v, ok := val.(T); ok {
			return v
		}
	}

	return defaultValue
}

func toFloat(val any) (float64, bool) {
	switch x := val.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
