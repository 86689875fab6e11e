package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout and ClockLayout are the wire formats of calendar days and
// wall-clock times stored on documents.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ErrBadClock is returned for time-of-day strings that are not HH:MM.
var ErrBadClock = errors.New("malformed time of day")

// ParseDate parses a YYYY-MM-DD day into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Today returns the calendar day of now in loc, as midnight UTC so that
// day arithmetic is free of DST shifts.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock converts "H:MM" or "HH:MM" into minutes since midnight.  Only
// digits are accepted, minutes are always two of them, and nothing may
// trail.  Hours must be 0-24 and minutes 0-59; "24:00" is end of day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !isDigits(hh) || !isDigits(mm) {
		return 0, ErrBadClock
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, ErrBadClock
	}
	return h*60 + m, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes shifts an "HH:MM" string by n minutes.  It returns "" when
// the input is malformed.
func AddMinutes(clock string, n int) string {
	start, err := ParseClock(clock)
	if err != nil {
		return ""
	}
	return FormatClock(start + n)
}

// StartsAt resolves a date and wall-clock time in loc.
func StartsAt(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, mins/60, mins%60, 0, 0, loc), nil
}

// LoadZone resolves an IANA zone name, falling back to UTC for empty or
// unknown names.
func LoadZone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ChildKey normalises a child name for case-insensitive matching.
func ChildKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
