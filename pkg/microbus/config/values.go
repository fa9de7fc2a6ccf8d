package config

import (
	"log/slog"
	"time"
)

// values wraps a decoded document for lenient, typed extraction.
// Every accessor returns defaultVal when the key is missing or its value
// cannot be converted.
type values map[string]any

func (v values) stringValue(key, defaultVal string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return defaultVal
}

// durationValue accepts a time.ParseDuration string or a number of seconds.
func (v values) durationValue(key string, defaultVal time.Duration) time.Duration {
	switch val := v[key].(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	}
	return defaultVal
}

func (v values) boolValue(key string, defaultVal bool) bool {
	if b, ok := v[key].(bool); ok {
		return b
	}
	return defaultVal
}

// intValue accepts integers and floats without a fractional part.
func (v values) intValue(key string, defaultVal int) int {
	switch val := v[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

func (v values) levelValue(key string, defaultVal slog.Level) slog.Level {
	s, ok := v[key].(string)
	if !ok {
		return defaultVal
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return defaultVal
	}
	return l
}
