package analytics

import (
	"strconv"
	"strings"
	"time"
)

// dateLayout is the date format Freshservice filter queries accept.
const dateLayout = "2006-01-02"

// timestampLayouts are tried in order when reading ticket timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// DateRange is a resolved [Start, End) creation window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DateRangeOut is the echoed form of a date range; nil bounds are open.
type DateRangeOut struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// ParseBound parses a date bound: YYYY-MM-DD, an RFC 3339 timestamp, or a
// relative offset back from now such as "7d" or "2w".
func ParseBound(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("", "empty date")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, ok := parseRelative(s, now); ok {
		return t, nil
	}
	return time.Time{}, invalid("", "invalid date %q (use YYYY-MM-DD, RFC 3339, or a period like 30d or 2w)", s)
}

// ParsePeriod parses a relative period ("7d", "30d", "2w") into its start time.
func ParsePeriod(period string, now time.Time) (time.Time, error) {
	if t, ok := parseRelative(strings.TrimSpace(period), now); ok {
		return t, nil
	}
	return time.Time{}, invalid("period", "invalid period format %q, use a format like 7d, 30d or 2w", period)
}

func parseRelative(s string, now time.Time) (time.Time, bool) {
	if len(s) < 2 {
		return time.Time{}, false
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	switch unit {
	case 'd':
		return now.AddDate(0, 0, -n), true
	case 'w':
		return now.AddDate(0, 0, -7*n), true
	default:
		return time.Time{}, false
	}
}

// checkOrder rejects a range whose start falls after its end.
func checkOrder(start, end time.Time) error {
	if start.After(end) {
		return invalid("created_after", "%s is after the end of the range %s",
			start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	}
	return nil
}

// formatStart renders a lower bound for a filter query.
func formatStart(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// formatEnd renders an upper bound for a filter query. Filter queries compare
// whole days, so a bound inside a day is moved to the next midnight to keep
// that day's tickets.
func formatEnd(t time.Time) string {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if !t.Equal(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format(dateLayout)
}

// parseTimestamp reads a ticket timestamp.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func strPtr(s string) *string {
	return &s
}
