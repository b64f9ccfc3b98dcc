package env

import (
	"strconv"
	"strings"
	"time"
)

// GetOrDefault retrieves an environment variable with a default value
func GetOrDefault(key, defaultValue string) string {
	if value, ok := Get(key); ok {
		return value
	}
	return defaultValue
}

// Duration parses key as a time.Duration. ok is false when the variable is
// unset; err is set when it is present but malformed.
func Duration(key string) (d time.Duration, ok bool, err error) {
	raw, ok := Get(key)
	if !ok {
		return 0, false, nil
	}
	d, err = time.ParseDuration(raw)
	return d, true, err
}

// Int parses key as a base-10 integer.
func Int(key string) (n int, ok bool, err error) {
	raw, ok := Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.Atoi(strings.TrimSpace(raw))
	return n, true, err
}

// List splits a comma separated variable, dropping blank entries.
func List(key string) ([]string, bool) {
	raw, ok := Get(key)
	if !ok {
		return nil, false
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, len(out) > 0
}
