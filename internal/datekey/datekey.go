// Package datekey converts timestamps into the canonical UTC calendar-day keys
// ("Jan 02, 2006") that every reconciled series is indexed by.
package datekey

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the date key format.
const Layout = "Jan 02, 2006"

// Day is one calendar day.
const Day = 24 * time.Hour

// timestampLayouts are tried in order for anything that is not already a date key.
// Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse reads a timestamp in any supported representation and returns it in UTC.
func Parse(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if len(ts) == len(Layout) {
		if t, err := time.Parse(Layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", ts)
}

// FromTime formats t as a date key.
func FromTime(t time.Time) string {
	return t.UTC().Format(Layout)
}

// FromTimeBackOneDay formats t minus one minute, so that a timestamp in the first
// minute of a UTC day lands in the previous day's bucket.
func FromTimeBackOneDay(t time.Time) string {
	return FromTime(t.Add(-time.Minute))
}

// ToDateKey normalizes a timestamp string to a date key.
func ToDateKey(ts string) (string, error) {
	t, err := Parse(ts)
	if err != nil {
		return "", err
	}
	return FromTime(t), nil
}

// ToDateKeyBackOneDay is ToDateKey shifted back by one minute.
// Reward snapshots are recorded a few seconds into the day they summarize.
func ToDateKeyBackOneDay(ts string) (string, error) {
	t, err := Parse(ts)
	if err != nil {
		return "", err
	}
	return FromTimeBackOneDay(t), nil
}

// FromDateKey parses a date key back to midnight UTC of that day.
func FromDateKey(key string) (time.Time, error) {
	t, err := time.Parse(Layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(StartOfDay(end).Sub(StartOfDay(start)) / Day)
}
