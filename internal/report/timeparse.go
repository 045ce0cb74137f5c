package report

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimestamp parses the ISO-8601 strings carried on synced records.
// Upstream emitters are inconsistent: some append "Z", some carry a
// numeric offset, some send naive timestamps, and fractional seconds
// range from zero to nine digits. An empty string is not an error; it
// means the field was never populated and parses to the zero time.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	// Naive timestamps are assumed UTC.
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	// Some records carry more fractional digits than the offset parser
	// tolerates together with a "+HH:MM" suffix. Truncate the fraction
	// to six digits and retry before giving up.
	if trimmed, ok := clampFraction(s); ok {
		if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized format", raw)
}

// ParseTimestampOr parses raw and falls back to def when the value is
// empty or malformed. Aggregation paths use it so one bad record never
// aborts a whole report section.
func ParseTimestampOr(raw string, def time.Time) time.Time {
	t, err := ParseTimestamp(raw)
	if err != nil || t.IsZero() {
		return def
	}
	return t
}

// clampFraction truncates a fractional-seconds run longer than six
// digits. Returns false when the input has no overlong fraction.
func clampFraction(s string) (string, bool) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s, false
	}
	end := dot + 1
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end-dot-1 <= 6 {
		return s, false
	}
	return s[:dot+7] + s[end:], true
}
