package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReferenceZone is the studio's wall-clock timezone. Every civil reading in
// the system is taken in this zone, regardless of how an instant was stored.
const ReferenceZone = "Europe/Stockholm"

// ErrInvalidInstant marks a missing or unparseable timestamp.
var ErrInvalidInstant = errors.New("invalid instant")

var refLoc *time.Location

func init() {
	loc, err := time.LoadLocation(ReferenceZone)
	if err != nil {
		panic(fmt.Sprintf("load reference timezone %s: %v", ReferenceZone, err))
	}
	refLoc = loc
}

// Location returns the fixed reference timezone.
func Location() *time.Location {
	return refLoc
}

// Civil is the wall-clock reading of an instant in the reference timezone.
// Derived, never stored.
type Civil struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
	Second int        `json:"second"`
}

// ToCivil converts an instant to its reference-timezone wall-clock reading.
func ToCivil(t time.Time) Civil {
	local := t.In(refLoc)
	return Civil{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
	}
}

// ParseInstant parses a stored timestamp string into an instant.
// Strings lacking a timezone offset are retried with a trailing "Z", to
// tolerate naive timestamps stored as if already UTC. A space separator is
// accepted for rows written by the SQL layer.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidInstant)
	}
	if strings.Contains(s, " ") && !strings.Contains(s, "T") {
		s = strings.Replace(s, " ", "T", 1)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s+"Z"); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}

// MinuteOfDay returns the reference-timezone minute of day in [0, 1440).
func MinuteOfDay(t time.Time) int {
	c := ToCivil(t)
	return c.Hour*60 + c.Minute
}

// MinuteOfDayString parses a stored timestamp and returns its minute of day.
func MinuteOfDayString(s string) (int, error) {
	t, err := ParseInstant(s)
	if err != nil {
		return 0, err
	}
	return MinuteOfDay(t), nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight in the reference
// timezone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, refLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
	}
	return t, nil
}

// FormatDate renders the reference-timezone calendar date of an instant.
func FormatDate(t time.Time) string {
	return t.In(refLoc).Format("2006-01-02")
}

// DayBounds returns the half-open instant range [start, end) covering the
// reference-timezone calendar date of t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(refLoc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, refLoc)
	return start, start.AddDate(0, 0, 1)
}

// ISOWeekday returns the ISO-8601 weekday number: Monday=1 .. Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.In(refLoc).Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// SameDate reports whether two instants fall on the same reference-timezone
// calendar date.
func SameDate(a, b time.Time) bool {
	al, bl := a.In(refLoc), b.In(refLoc)
	return al.Year() == bl.Year() && al.Month() == bl.Month() && al.Day() == bl.Day()
}
