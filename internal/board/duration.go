package board

import (
	"fmt"
	"strings"
	"time"
)

// DurationPlaceholder is shown when a duration cannot be computed.
const DurationPlaceholder = "N/A"

// StorageLayout is the normalized form of every datetime field (datetime-local).
const StorageLayout = "2006-01-02T15:04"

var inputLayouts = []string{
	StorageLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses any accepted datetime input. Values carrying a zone
// offset are converted to UTC; values without one are taken as written.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// FormatDuration returns the elapsed time between failure and restoration as
// total hours and minutes ("HH:MM"). Missing, unparsable or reversed inputs
// yield DurationPlaceholder.
func FormatDuration(start, end string) string {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return DurationPlaceholder
	}
	from, err := ParseTimestamp(start)
	if err != nil {
		return DurationPlaceholder
	}
	to, err := ParseTimestamp(end)
	if err != nil {
		return DurationPlaceholder
	}
	if to.Before(from) {
		return DurationPlaceholder
	}

	minutes := int64(to.Sub(from) / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
