package schedule

import (
	"context"
	"fmt"
	"time"

	"fitgrid/internal/interval"
	"fitgrid/internal/model"
	"fitgrid/internal/timeutil"
)

// DefaultTravelBufferMinutes pads a trainer's booking at another location so
// travel time between sites is never double-booked.
const DefaultTravelBufferMinutes = 15

// BusyBlock is a derived occupied window together with the persons it
// occupies. Built fresh per request, never persisted.
type BusyBlock struct {
	Window    interval.Interval
	PersonIDs map[int64]struct{}
}

// BookingSource supplies the booking rows for one calendar date.
type BookingSource interface {
	RegularBookingsOn(ctx context.Context, dayStart, dayEnd time.Time, trainerID, roomID, excludeID int64) ([]model.RegularBooking, error)
	PersonalBookingsOn(ctx context.Context, dayStart, dayEnd time.Time, personIDs []int64, excludeID int64) ([]model.PersonalBooking, error)
	RoomByID(ctx context.Context, roomID int64) (*model.Room, error)
}

// Aggregator builds busy blocks from regular and personal bookings.
type Aggregator struct {
	src          BookingSource
	travelBuffer int
}

// NewAggregator builds an aggregator. travelBufferMinutes <= 0 falls back to
// the default padding.
func NewAggregator(src BookingSource, travelBufferMinutes int) *Aggregator {
	if travelBufferMinutes <= 0 {
		travelBufferMinutes = DefaultTravelBufferMinutes
	}
	return &Aggregator{src: src, travelBuffer: travelBufferMinutes}
}

// PersonalBlocks collects busy blocks from personal bookings whose
// participant set intersects personIDs, using exact intervals. excludeID
// drops one booking record, for edit-in-place checks.
func (a *Aggregator) PersonalBlocks(ctx context.Context, date time.Time, personIDs []int64, excludeID int64) ([]BusyBlock, error) {
	dayStart, dayEnd := timeutil.DayBounds(date)
	bookings, err := a.src.PersonalBookingsOn(ctx, dayStart, dayEnd, personIDs, excludeID)
	if err != nil {
		return nil, fmt.Errorf("load personal bookings: %w", err)
	}

	blocks := make([]BusyBlock, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if !b.Involves(personIDs) {
			continue
		}
		win, ok := clampToDay(b.StartsAt, b.EndsAt, dayStart, dayEnd)
		if !ok {
			continue
		}
		blocks = append(blocks, BusyBlock{Window: win, PersonIDs: b.Participants()})
	}
	return blocks, nil
}

// TrainerDayBlocks collects every blocked interval relevant to scheduling a
// trainer in a room: the trainer's and the room's regular bookings (merged),
// plus the trainer's personal bookings. Regular bookings at a location other
// than proposedLocationID are inflated with the travel buffer; personal
// bookings are never buffered.
func (a *Aggregator) TrainerDayBlocks(ctx context.Context, date time.Time, trainerID, roomID, proposedLocationID, excludeBookingID int64) ([]BusyBlock, error) {
	dayStart, dayEnd := timeutil.DayBounds(date)

	trainerBookings, err := a.src.RegularBookingsOn(ctx, dayStart, dayEnd, trainerID, 0, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("load trainer bookings: %w", err)
	}
	roomBookings, err := a.src.RegularBookingsOn(ctx, dayStart, dayEnd, 0, roomID, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("load room bookings: %w", err)
	}

	seen := make(map[int64]struct{}, len(trainerBookings)+len(roomBookings))
	var blocks []BusyBlock
	for _, b := range append(trainerBookings, roomBookings...) {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		if !b.Occupies() {
			continue
		}
		win, ok := regularWindow(&b, dayStart, dayEnd)
		if !ok {
			continue
		}
		if proposedLocationID > 0 && b.LocationID != proposedLocationID {
			win = win.WithBuffer(a.travelBuffer)
		}
		blocks = append(blocks, BusyBlock{
			Window:    win,
			PersonIDs: map[int64]struct{}{b.TrainerID: {}},
		})
	}

	personal, err := a.PersonalBlocks(ctx, date, []int64{trainerID}, 0)
	if err != nil {
		return nil, err
	}
	return append(blocks, personal...), nil
}

// regularWindow converts a regular booking to its minute window on the day.
func regularWindow(b *model.RegularBooking, dayStart, dayEnd time.Time) (interval.Interval, bool) {
	end := b.StartsAt.Add(time.Duration(b.SessionMinutes()) * time.Minute)
	return clampToDay(b.StartsAt, end, dayStart, dayEnd)
}

// clampToDay projects an instant range onto the calendar day's minute grid.
// Ranges spanning midnight keep only the portion inside the day.
func clampToDay(startsAt, endsAt time.Time, dayStart, dayEnd time.Time) (interval.Interval, bool) {
	if !startsAt.Before(dayEnd) || !endsAt.After(dayStart) {
		return interval.Interval{}, false
	}

	start := 0
	if !startsAt.Before(dayStart) {
		start = timeutil.MinuteOfDay(startsAt)
	}
	end := interval.MinutesPerDay
	if !endsAt.After(dayEnd) {
		end = timeutil.MinuteOfDay(endsAt)
		if end == 0 {
			end = interval.MinutesPerDay
		}
	}
	if start >= end {
		return interval.Interval{}, false
	}
	return interval.Interval{Start: start, End: end}, true
}
