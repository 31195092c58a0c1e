package interval

import (
	"errors"
	"fmt"
)

// MinutesPerDay is the exclusive upper bound for a minute of day.
const MinutesPerDay = 1440

// ErrInvalidInterval marks an interval with start >= end or an out-of-range
// minute.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a half-open time-of-day window [Start, End) in minutes of day.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// New validates and builds an interval.
func New(start, end int) (Interval, error) {
	if start < 0 || end > MinutesPerDay || start >= end {
		return Interval{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidInterval, start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals share any minute.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether the minute falls inside the interval.
func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute < iv.End
}

// Duration returns the interval length in minutes.
func (iv Interval) Duration() int {
	return iv.End - iv.Start
}

// WithBuffer expands the interval by the given number of minutes on both
// sides, clamped to the day. Used for cross-location travel padding.
func (iv Interval) WithBuffer(minutes int) Interval {
	start := iv.Start - minutes
	if start < 0 {
		start = 0
	}
	end := iv.End + minutes
	if end > MinutesPerDay {
		end = MinutesPerDay
	}
	return Interval{Start: start, End: end}
}

// String renders the interval as "HH:MM-HH:MM".
func (iv Interval) String() string {
	return Clock(iv.Start) + "-" + Clock(iv.End)
}

// Clock renders a minute of day as "HH:MM".
func Clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// FromClock parses an "HH:MM" label into a minute of day.
func FromClock(s string) (int, error) {
	var hour, min int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, fmt.Errorf("%w: bad clock label %q", ErrInvalidInterval, s)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, fmt.Errorf("%w: clock label %q out of range", ErrInvalidInterval, s)
	}
	return hour*60 + min, nil
}

// FromClockRange builds an interval from two "HH:MM" labels.
func FromClockRange(start, end string) (Interval, error) {
	s, err := FromClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := FromClock(end)
	if err != nil {
		return Interval{}, err
	}
	return New(s, e)
}
