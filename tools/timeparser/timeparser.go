package timeparser

import (
	"fmt"
	"time"
)

// ParseReadingTimestamp attempts to parse an ISO-8601 reading timestamp.
// A trailing "Z" is accepted as UTC offset shorthand; timestamps without an
// offset are interpreted as UTC.
func ParseReadingTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339,                    // 2025-06-03T05:00:00Z / +offset
		"2006-01-02T15:04:05",           // no offset
		"2006-01-02T15:04:05.999999999", // no offset, fractional seconds
		"2006-01-02 15:04:05",           // space separator
		"2006-01-02",                    // date only
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}
