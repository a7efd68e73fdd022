package model

import (
	"strings"
	"time"
)

// isoLayout matches the millisecond UTC form browsers emit from toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatTime renders t the way every client writes timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTime parses an ISO-8601 timestamp. Empty or malformed input yields Epoch,
// which loses every recency comparison.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return Epoch
}
