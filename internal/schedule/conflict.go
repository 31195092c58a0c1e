package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fitgrid/internal/interval"
	"fitgrid/internal/model"
	"fitgrid/internal/timeutil"
)

// Half-hour suggestion grid scanned when a repeated week conflicts.
const (
	gridFirstStart = 5 * 60       // 05:00
	gridLastStart  = 21*60 + 30   // 21:30
	gridStep       = 30
)

// Checker detects scheduling conflicts between a proposed window and the
// personal bookings of a participant set. Regular training bookings are not
// conflict sources for meeting scheduling.
type Checker struct {
	agg *Aggregator
}

// NewChecker builds a checker over the given aggregator.
func NewChecker(agg *Aggregator) *Checker {
	return &Checker{agg: agg}
}

// ConflictingParticipants returns the subset of personIDs occupied during
// the proposed window on the date. An empty set means no conflict; a
// malformed window is an error, never a silent empty set. excludeBookingID
// drops the booking being edited from consideration.
func (c *Checker) ConflictingParticipants(ctx context.Context, date time.Time, win interval.Interval, personIDs []int64, excludeBookingID int64) (map[int64]struct{}, error) {
	if _, err := interval.New(win.Start, win.End); err != nil {
		return nil, err
	}
	if len(personIDs) == 0 {
		return nil, fmt.Errorf("%w: participant ids", model.ErrMissingIdentifier)
	}

	blocks, err := c.agg.PersonalBlocks(ctx, date, personIDs, excludeBookingID)
	if err != nil {
		return nil, err
	}
	return conflictsAgainst(blocks, win, personIDs), nil
}

// WeekResult is the conflict outcome of one weekly occurrence.
type WeekResult struct {
	Date           string   `json:"date"`
	Conflict       bool     `json:"conflict"`
	ParticipantIDs []int64  `json:"participant_ids,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

// CheckRepeatedWeeks projects the conflict check across weeks weekly
// occurrences starting at baseDate. For each conflicting week it scans the
// half-hour grid from 05:00 to 21:30 and suggests every start time whose
// same-duration window is conflict free.
func (c *Checker) CheckRepeatedWeeks(ctx context.Context, baseDate time.Time, win interval.Interval, personIDs []int64, weeks int) ([]WeekResult, error) {
	if _, err := interval.New(win.Start, win.End); err != nil {
		return nil, err
	}
	if len(personIDs) == 0 {
		return nil, fmt.Errorf("%w: participant ids", model.ErrMissingIdentifier)
	}
	if weeks < 1 {
		weeks = 1
	}

	results := make([]WeekResult, 0, weeks)
	for i := 0; i < weeks; i++ {
		date := baseDate.AddDate(0, 0, 7*i)
		blocks, err := c.agg.PersonalBlocks(ctx, date, personIDs, 0)
		if err != nil {
			return nil, fmt.Errorf("week %d: %w", i+1, err)
		}

		busy := conflictsAgainst(blocks, win, personIDs)
		result := WeekResult{
			Date:     timeutil.FormatDate(date),
			Conflict: len(busy) > 0,
		}
		if result.Conflict {
			result.ParticipantIDs = sortedIDs(busy)
			result.Suggestions = suggestStarts(blocks, win.Duration(), personIDs)
		}
		results = append(results, result)
	}
	return results, nil
}

// conflictsAgainst unions the occupied ids of every block overlapping the
// window, restricted to the requested participants.
func conflictsAgainst(blocks []BusyBlock, win interval.Interval, personIDs []int64) map[int64]struct{} {
	requested := make(map[int64]struct{}, len(personIDs))
	for _, id := range personIDs {
		requested[id] = struct{}{}
	}

	busy := make(map[int64]struct{})
	for _, block := range blocks {
		if !win.Overlaps(block.Window) {
			continue
		}
		for id := range block.PersonIDs {
			if _, ok := requested[id]; ok {
				busy[id] = struct{}{}
			}
		}
	}
	return busy
}

// suggestStarts returns the grid start labels whose same-duration window
// produces zero conflicts against the already-loaded blocks.
func suggestStarts(blocks []BusyBlock, durationMinutes int, personIDs []int64) []string {
	var suggestions []string
	for start := gridFirstStart; start <= gridLastStart; start += gridStep {
		end := start + durationMinutes
		if end > interval.MinutesPerDay {
			break
		}
		candidate := interval.Interval{Start: start, End: end}
		if len(conflictsAgainst(blocks, candidate, personIDs)) == 0 {
			suggestions = append(suggestions, interval.Clock(start))
		}
	}
	return suggestions
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
