package schedule

import (
	"context"
	"fmt"
	"time"

	"fitgrid/internal/interval"
	"fitgrid/internal/model"
)

// GridConfig bounds the daily slot grid for free-slot enumeration.
type GridConfig struct {
	// OpenMinute is the first minute of day considered for slot starts.
	OpenMinute int
	// LastStartMinute is the latest allowed slot start.
	LastStartMinute int
	// SlotMinutes is the fixed slot length.
	SlotMinutes int
	// DefaultAnchorMinute is the minute-of-hour slots start at when the room
	// carries no anchor of its own.
	DefaultAnchorMinute int
}

// DefaultGrid matches the studio's historical grid: 60-minute slots on the
// half hour between 05:00 and 21:30.
func DefaultGrid() GridConfig {
	return GridConfig{
		OpenMinute:          gridFirstStart,
		LastStartMinute:     gridLastStart,
		SlotMinutes:         model.DefaultSessionMinutes,
		DefaultAnchorMinute: 30,
	}
}

// Finder enumerates free slots and locates the next occupied boundary.
type Finder struct {
	agg     *Aggregator
	checker *Checker
	grid    GridConfig
}

// NewFinder builds a finder. Zero grid fields fall back to the defaults.
func NewFinder(agg *Aggregator, checker *Checker, grid GridConfig) *Finder {
	def := DefaultGrid()
	if grid.OpenMinute <= 0 {
		grid.OpenMinute = def.OpenMinute
	}
	if grid.LastStartMinute <= 0 {
		grid.LastStartMinute = def.LastStartMinute
	}
	if grid.SlotMinutes <= 0 {
		grid.SlotMinutes = def.SlotMinutes
	}
	if grid.DefaultAnchorMinute < 0 || grid.DefaultAnchorMinute > 59 {
		grid.DefaultAnchorMinute = def.DefaultAnchorMinute
	}
	return &Finder{agg: agg, checker: checker, grid: grid}
}

// AvailableSlots enumerates the free slot start labels for a trainer in a
// room on the date. The grid anchor comes from the room (minute-of-hour of
// slot starts), defaulting to the half-hour grid. Bookings at other
// locations are padded with the travel buffer before the check.
func (f *Finder) AvailableSlots(ctx context.Context, date time.Time, trainerID, locationID, roomID int64) ([]string, error) {
	if trainerID <= 0 {
		return nil, fmt.Errorf("%w: trainer id", model.ErrMissingIdentifier)
	}
	if locationID <= 0 {
		return nil, fmt.Errorf("%w: location id", model.ErrMissingIdentifier)
	}
	if roomID <= 0 {
		return nil, fmt.Errorf("%w: room id", model.ErrMissingIdentifier)
	}

	room, err := f.agg.src.RoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	anchor := f.grid.DefaultAnchorMinute
	if room != nil && room.SlotAnchorMinute >= 0 && room.SlotAnchorMinute <= 59 {
		anchor = room.SlotAnchorMinute
	}

	blocks, err := f.agg.TrainerDayBlocks(ctx, date, trainerID, roomID, locationID, 0)
	if err != nil {
		return nil, err
	}

	var free []string
	for start := firstAnchoredStart(f.grid.OpenMinute, anchor); start <= f.grid.LastStartMinute; start += 60 {
		end := start + f.grid.SlotMinutes
		if end > interval.MinutesPerDay {
			break
		}
		slot := interval.Interval{Start: start, End: end}
		if blocked(blocks, slot) {
			continue
		}
		free = append(free, interval.Clock(start))
	}
	return free, nil
}

// Boundary is the soonest busy-block start at or after a requested time,
// with the conflicting participants of an optional probe window.
type Boundary struct {
	Next           string  `json:"next,omitempty"`
	HasNext        bool    `json:"has_next"`
	ParticipantIDs []int64 `json:"participant_ids,omitempty"`
}

// NextBoundary finds the minimum personal-booking start minute at or after
// the "HH:MM" time for the participants. When endClock is supplied and later
// than the time, the conflicting participants of [time, endClock) are
// reported alongside. excludeBookingID drops one personal booking record.
func (f *Finder) NextBoundary(ctx context.Context, date time.Time, atClock string, participantIDs []int64, endClock string, excludeBookingID int64) (*Boundary, error) {
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("%w: participant ids", model.ErrMissingIdentifier)
	}
	at, err := interval.FromClock(atClock)
	if err != nil {
		return nil, err
	}

	blocks, err := f.agg.PersonalBlocks(ctx, date, participantIDs, excludeBookingID)
	if err != nil {
		return nil, err
	}

	boundary := &Boundary{}
	next := -1
	for _, block := range blocks {
		if block.Window.Start < at {
			continue
		}
		if next == -1 || block.Window.Start < next {
			next = block.Window.Start
		}
	}
	if next >= 0 {
		boundary.Next = interval.Clock(next)
		boundary.HasNext = true
	}

	if endClock != "" {
		end, err := interval.FromClock(endClock)
		if err != nil {
			return nil, err
		}
		if end > at {
			probe := interval.Interval{Start: at, End: end}
			busy := conflictsAgainst(blocks, probe, participantIDs)
			boundary.ParticipantIDs = sortedIDs(busy)
		}
	}
	return boundary, nil
}

func firstAnchoredStart(openMinute, anchor int) int {
	start := (openMinute/60)*60 + anchor
	if start < openMinute {
		start += 60
	}
	return start
}

func blocked(blocks []BusyBlock, slot interval.Interval) bool {
	for _, block := range blocks {
		if slot.Overlaps(block.Window) {
			return true
		}
	}
	return false
}
