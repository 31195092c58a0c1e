package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"fitgrid/internal/events"
	"fitgrid/internal/interval"
	"fitgrid/internal/metrics"
	"fitgrid/internal/model"
	"fitgrid/internal/timeutil"
)

// ConflictError blocks a personal booking write; it carries the ids of the
// participants who are busy so the caller can surface them.
type ConflictError struct {
	PersonIDs []int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("participants busy: %v", e.PersonIDs)
}

// BookingStore persists personal bookings.
type BookingStore interface {
	CreatePersonalBooking(ctx context.Context, b *model.PersonalBooking) error
	UpdatePersonalBooking(ctx context.Context, b *model.PersonalBooking) error
	PersonalBookingByID(ctx context.Context, id int64) (*model.PersonalBooking, error)
}

// ConflictChecker answers whether a participant set is busy in a window.
type ConflictChecker interface {
	ConflictingParticipants(ctx context.Context, date time.Time, win interval.Interval, personIDs []int64, excludeBookingID int64) (map[int64]struct{}, error)
}

// EventPublisher publishes booking lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// PersonalBookingService guards personal booking writes behind the conflict
// check: a write is blocked whenever any participant has an overlapping
// personal booking. The check and the write are not transactionally
// isolated; the store's constraints are the last line of defense against the
// race between them.
type PersonalBookingService struct {
	store   BookingStore
	checker ConflictChecker
	bus     EventPublisher
	log     *zerolog.Logger
}

// NewPersonalBookingService wires the guard.
func NewPersonalBookingService(store BookingStore, checker ConflictChecker, bus EventPublisher, log *zerolog.Logger) *PersonalBookingService {
	return &PersonalBookingService{store: store, checker: checker, bus: bus, log: log}
}

// Create checks the merged participant set against the proposed window and
// persists the booking when clear.
func (s *PersonalBookingService) Create(ctx context.Context, b *model.PersonalBooking) error {
	if err := s.guard(ctx, b, 0); err != nil {
		return err
	}
	if err := s.store.CreatePersonalBooking(ctx, b); err != nil {
		return fmt.Errorf("create personal booking: %w", err)
	}

	metrics.IncBookingCreated()
	_ = s.bus.PublishJSON(events.TypePersonalBookingCreated, b)
	s.log.Info().
		Int64("booking_id", b.ID).
		Int64("primary_user_id", b.PrimaryUserID).
		Time("starts_at", b.StartsAt).
		Msg("personal booking created")
	return nil
}

// Update re-checks conflicts excluding the booking's own id and rewrites it.
func (s *PersonalBookingService) Update(ctx context.Context, b *model.PersonalBooking) error {
	if b.ID <= 0 {
		return fmt.Errorf("%w: booking id", model.ErrMissingIdentifier)
	}
	if err := s.guard(ctx, b, b.ID); err != nil {
		return err
	}
	if err := s.store.UpdatePersonalBooking(ctx, b); err != nil {
		return fmt.Errorf("update personal booking: %w", err)
	}

	_ = s.bus.PublishJSON(events.TypePersonalBookingUpdated, b)
	s.log.Info().
		Int64("booking_id", b.ID).
		Time("starts_at", b.StartsAt).
		Msg("personal booking updated")
	return nil
}

// guard validates the proposed window and blocks on any busy participant.
func (s *PersonalBookingService) guard(ctx context.Context, b *model.PersonalBooking, excludeID int64) error {
	if b.PrimaryUserID <= 0 {
		return fmt.Errorf("%w: primary user id", model.ErrMissingIdentifier)
	}
	if !timeutil.SameDate(b.StartsAt, b.EndsAt) {
		return fmt.Errorf("%w: booking must start and end on the same day", interval.ErrInvalidInterval)
	}
	win, err := interval.New(timeutil.MinuteOfDay(b.StartsAt), timeutil.MinuteOfDay(b.EndsAt))
	if err != nil {
		return err
	}

	participants := sortedParticipants(b)
	busy, err := s.checker.ConflictingParticipants(ctx, b.StartsAt, win, participants, excludeID)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if len(busy) > 0 {
		ids := make([]int64, 0, len(busy))
		for id := range busy {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		metrics.IncBookingBlocked()
		_ = s.bus.PublishJSON(events.TypeBookingBlocked, map[string]any{
			"primary_user_id": b.PrimaryUserID,
			"busy_ids":        ids,
			"starts_at":       b.StartsAt,
		})
		s.log.Warn().
			Int64("primary_user_id", b.PrimaryUserID).
			Ints64("busy_ids", ids).
			Msg("personal booking blocked by conflicts")
		return &ConflictError{PersonIDs: ids}
	}
	return nil
}

func sortedParticipants(b *model.PersonalBooking) []int64 {
	set := b.Participants()
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
