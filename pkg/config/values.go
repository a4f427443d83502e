package config

import (
	"fmt"
	"math"
	"time"
)

// The helpers below accept values as decoded from JSON (float64) or YAML
// (int), and durations as strings ("5m") or millisecond numbers.

func intValue(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("invalid value for %s: %v is not an integer", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected integer, got %T", key, value)
	}
}

func boolValue(key string, value interface{}) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
	}
	return b, nil
}

func stringValue(key string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
	}
	return s, nil
}

func durationValue(key string, value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected duration string or milliseconds, got %T", key, value)
	}
}

func stringSliceValue(key string, value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s entry at index %d: expected string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid value type for %s: expected list, got %T", key, value)
	}
}
