package model

import (
	"errors"
	"time"
)

// ErrMissingIdentifier marks a request lacking a required person, trainer,
// room or location id.
var ErrMissingIdentifier = errors.New("missing identifier")

// Regular booking statuses. Only non-cancelled bookings occupy time.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusRejected  = "rejected"
)

// DefaultSessionMinutes is the fixed duration of a regular training session.
const DefaultSessionMinutes = 60

// Location is a physical studio site.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is a bookable training room at a location. SlotAnchorMinute is the
// minute-of-hour at which the room's slot grid starts (30 by default).
type Room struct {
	ID               int64     `json:"id"`
	LocationID       int64     `json:"location_id"`
	Name             string    `json:"name"`
	SlotAnchorMinute int       `json:"slot_anchor_minute"`
	CreatedAt        time.Time `json:"created_at"`
}

// WeeklyRule grants (or explicitly withholds, when Closed) availability for
// one ISO weekday (Monday=1 .. Sunday=7). At most one active rule exists per
// (person, weekday).
type WeeklyRule struct {
	ID        int64     `json:"id"`
	PersonID  int64     `json:"person_id"`
	Weekday   int       `json:"weekday"`
	StartTime string    `json:"start_time"` // "09:00"
	EndTime   string    `json:"end_time"`   // "17:00"
	Closed    bool      `json:"closed"`     // explicitly unavailable that weekday
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateOverride replaces the weekly rule for one calendar date. Several rows
// per (person, date) express multiple windows on the same day.
type DateOverride struct {
	ID        int64     `json:"id"`
	PersonID  int64     `json:"person_id"`
	Date      string    `json:"date"` // "2006-01-02"
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// Vacation is whole-day unavailability for every date in the inclusive range.
type Vacation struct {
	ID       int64  `json:"id"`
	PersonID int64  `json:"person_id"`
	FromDate string `json:"from_date"` // "2006-01-02"
	ToDate   string `json:"to_date"`   // "2006-01-02"
}

// Absence is open-ended unavailability until resolved (nil EndsAt).
type Absence struct {
	ID       int64      `json:"id"`
	PersonID int64      `json:"person_id"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

// Covers reports whether the absence overlaps the half-open instant range
// [dayStart, dayEnd) of a calendar day.
func (a *Absence) Covers(dayStart, dayEnd time.Time) bool {
	if !a.StartsAt.Before(dayEnd) {
		return false
	}
	return a.EndsAt == nil || !a.EndsAt.Before(dayStart)
}

// RegularBooking is a training session for one trainer in one room.
type RegularBooking struct {
	ID              int64     `json:"id"`
	TrainerID       int64     `json:"trainer_id"`
	RoomID          int64     `json:"room_id"`
	LocationID      int64     `json:"location_id"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Occupies reports whether the booking blocks time (non-cancelled kinds).
func (b *RegularBooking) Occupies() bool {
	return b.Status != StatusCanceled && b.Status != StatusRejected
}

// SessionMinutes returns the booked duration, defaulting to a full session.
func (b *RegularBooking) SessionMinutes() int {
	if b.DurationMinutes > 0 {
		return b.DurationMinutes
	}
	return DefaultSessionMinutes
}

// PersonalBooking is an ad-hoc multi-person block (meeting, internal hold).
// Everyone in PrimaryUserID plus UserIDs is occupied for [StartsAt, EndsAt).
type PersonalBooking struct {
	ID            int64     `json:"id"`
	PrimaryUserID int64     `json:"primary_user_id"`
	UserIDs       []int64   `json:"user_ids"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Participants returns the merged set of occupied person ids.
func (b *PersonalBooking) Participants() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(b.UserIDs)+1)
	if b.PrimaryUserID > 0 {
		ids[b.PrimaryUserID] = struct{}{}
	}
	for _, id := range b.UserIDs {
		if id > 0 {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// Involves reports whether any of the given persons participates.
func (b *PersonalBooking) Involves(personIDs []int64) bool {
	participants := b.Participants()
	for _, id := range personIDs {
		if _, ok := participants[id]; ok {
			return true
		}
	}
	return false
}
