package types

import (
	"time"
)

// TimeLayout is the RFC3339 layout with nanosecond precision OANDA expects in query
// parameters, e.g. 2024-10-14T00:00:00.000000000Z.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// ParseTime parses an RFC3339 timestamp as sent with Accept-Datetime-Format: RFC3339.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// FormatTime formats t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
