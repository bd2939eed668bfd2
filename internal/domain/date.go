package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar days
const DateLayout = "2006-01-02"

// clockPattern matches HH:mm with an optional leading zero on the hour
var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Day normalizes t to midnight of its calendar day. The day is read in t's own
// location and the result is expressed in UTC so that calendar days compare
// and store identically regardless of the server zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts either YYYY-MM-DD or an RFC 3339 timestamp. Timestamps are
// converted to local time before their calendar day is taken.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return Day(t.Local()), nil
}

// IsClock reports whether s is a valid HH:mm time
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// At combines a calendar day and an HH:mm clock into a wall time in loc
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	if !IsClock(clock) {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(clock, "%d:%d", &hh, &mm); err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hh, mm, 0, 0, loc), nil
}
