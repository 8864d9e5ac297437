package cmd

import "time"

// parseDurationFlag parses s as a time.Duration, falling back to def when s
// is empty.
func parseDurationFlag(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
