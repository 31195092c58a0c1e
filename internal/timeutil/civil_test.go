package timeutil

import (
	"errors"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"with offset", "2024-06-03T10:00:00+02:00", false},
		{"utc", "2024-06-03T08:00:00Z", false},
		{"naive assumed utc", "2024-06-03T08:00:00", false},
		{"sql separator", "2024-06-03 08:00:00", false},
		{"empty", "", true},
		{"garbage", "not-a-timestamp", true},
		{"date only", "2024-06-03", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstant(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInstant) {
					t.Errorf("expected ErrInvalidInstant, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// The same absolute instant must yield the same civil reading whether it was
// stored with an explicit offset or naive-and-assumed-UTC.
func TestMinuteOfDayStableAcrossEncodings(t *testing.T) {
	encodings := []string{
		"2024-06-03T08:00:00Z",
		"2024-06-03T08:00:00",
		"2024-06-03T10:00:00+02:00",
		"2024-06-03T04:00:00-04:00",
	}

	want := 10 * 60 // 10:00 in Stockholm (CEST, UTC+2)
	for _, enc := range encodings {
		instant, err := ParseInstant(enc)
		if err != nil {
			t.Fatalf("ParseInstant(%q): %v", enc, err)
		}
		if got := MinuteOfDay(instant); got != want {
			t.Errorf("MinuteOfDay(%q) = %d, want %d", enc, got, want)
		}
	}
}

func TestToCivilWinterTime(t *testing.T) {
	// CET is UTC+1 in January.
	instant, err := ParseInstant("2024-01-15T23:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := ToCivil(instant)
	if c.Day != 16 || c.Hour != 0 || c.Minute != 30 {
		t.Errorf("unexpected civil reading: %+v", c)
	}
	if got := MinuteOfDay(instant); got != 30 {
		t.Errorf("MinuteOfDay = %d, want 30", got)
	}
}

func TestISOWeekday(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-05-06", 1}, // Monday
		{"2024-05-08", 3}, // Wednesday
		{"2024-05-11", 6}, // Saturday
		{"2024-05-12", 7}, // Sunday
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			if err != nil {
				t.Fatalf("ParseDate: %v", err)
			}
			if got := ISOWeekday(d); got != tt.want {
				t.Errorf("ISOWeekday(%s) = %d, want %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	d, err := ParseDate("2024-06-03")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}

	start, end := DayBounds(d)
	if !start.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, Location())) {
		t.Errorf("unexpected day start: %v", start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("unexpected day length: %v", end.Sub(start))
	}
}

func TestSameDate(t *testing.T) {
	a := time.Date(2024, 6, 3, 23, 30, 0, 0, Location())
	b := time.Date(2024, 6, 3, 0, 15, 0, 0, Location())
	c := time.Date(2024, 6, 4, 0, 15, 0, 0, Location())

	if !SameDate(a, b) {
		t.Error("expected same date for a and b")
	}
	if SameDate(a, c) {
		t.Error("expected different dates for a and c")
	}

	// An instant stored in UTC still compares by its Stockholm date.
	utcEvening := time.Date(2024, 6, 3, 22, 30, 0, 0, time.UTC) // 00:30 on the 4th in Stockholm
	if SameDate(a, utcEvening) {
		t.Error("UTC evening instant belongs to the next Stockholm date")
	}
}

func TestFormatDate(t *testing.T) {
	instant := time.Date(2024, 6, 3, 22, 30, 0, 0, time.UTC)
	if got := FormatDate(instant); got != "2024-06-04" {
		t.Errorf("FormatDate = %q, want 2024-06-04", got)
	}
}
