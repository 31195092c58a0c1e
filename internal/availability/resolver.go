package availability

import (
	"context"
	"fmt"
	"time"

	"fitgrid/internal/interval"
	"fitgrid/internal/model"
	"fitgrid/internal/timeutil"
)

// Decision is the outcome of one cascade stage.
type Decision int

const (
	// DecisionContinue means the stage has no opinion; try the next stage.
	DecisionContinue Decision = iota
	// DecisionUnavailable means the person is fully unavailable that day.
	DecisionUnavailable
	// DecisionWindows means the stage produced the authoritative windows.
	DecisionWindows
)

// RuleSource supplies the availability rows for one person around one date.
type RuleSource interface {
	AbsencesOverlapping(ctx context.Context, personID int64, dayStart, dayEnd time.Time) ([]model.Absence, error)
	VacationsCovering(ctx context.Context, personID int64, date string) ([]model.Vacation, error)
	OverridesOn(ctx context.Context, personID int64, date string) ([]model.DateOverride, error)
	WeeklyRuleFor(ctx context.Context, personID int64, isoWeekday int) (*model.WeeklyRule, error)
}

// Resolver resolves the availability windows of a person on a calendar date
// by cascading absence, vacation, date override and weekly rule sources.
// The first stage with an opinion wins.
type Resolver struct {
	src    RuleSource
	stages []stage
}

type stage func(ctx context.Context, personID int64, date time.Time) (Decision, []interval.Interval, error)

// NewResolver builds a resolver with the fixed stage priority order.
func NewResolver(src RuleSource) *Resolver {
	r := &Resolver{src: src}
	r.stages = []stage{r.absenceStage, r.vacationStage, r.overrideStage, r.weeklyStage}
	return r
}

// ResolveDay returns the available windows for the person on the date, or a
// nil slice when the person is fully unavailable. Availability is never
// implied: with no matching rule the day resolves to unavailable.
func (r *Resolver) ResolveDay(ctx context.Context, personID int64, date time.Time) ([]interval.Interval, error) {
	if personID <= 0 {
		return nil, fmt.Errorf("%w: person id", model.ErrMissingIdentifier)
	}

	for _, st := range r.stages {
		decision, windows, err := st(ctx, personID, date)
		if err != nil {
			return nil, err
		}
		switch decision {
		case DecisionUnavailable:
			return nil, nil
		case DecisionWindows:
			return windows, nil
		}
	}
	return nil, nil
}

func (r *Resolver) absenceStage(ctx context.Context, personID int64, date time.Time) (Decision, []interval.Interval, error) {
	dayStart, dayEnd := timeutil.DayBounds(date)
	absences, err := r.src.AbsencesOverlapping(ctx, personID, dayStart, dayEnd)
	if err != nil {
		return DecisionContinue, nil, fmt.Errorf("load absences: %w", err)
	}
	for _, a := range absences {
		if a.Covers(dayStart, dayEnd) {
			return DecisionUnavailable, nil, nil
		}
	}
	return DecisionContinue, nil, nil
}

func (r *Resolver) vacationStage(ctx context.Context, personID int64, date time.Time) (Decision, []interval.Interval, error) {
	vacations, err := r.src.VacationsCovering(ctx, personID, timeutil.FormatDate(date))
	if err != nil {
		return DecisionContinue, nil, fmt.Errorf("load vacations: %w", err)
	}
	if len(vacations) > 0 {
		return DecisionUnavailable, nil, nil
	}
	return DecisionContinue, nil, nil
}

func (r *Resolver) overrideStage(ctx context.Context, personID int64, date time.Time) (Decision, []interval.Interval, error) {
	overrides, err := r.src.OverridesOn(ctx, personID, timeutil.FormatDate(date))
	if err != nil {
		return DecisionContinue, nil, fmt.Errorf("load overrides: %w", err)
	}
	if len(overrides) == 0 {
		return DecisionContinue, nil, nil
	}

	// Overrides replace the weekly rule outright, they never merge with it.
	windows := make([]interval.Interval, 0, len(overrides))
	for _, o := range overrides {
		win, err := interval.FromClockRange(o.StartTime, o.EndTime)
		if err != nil {
			return DecisionContinue, nil, fmt.Errorf("override %d: %w", o.ID, err)
		}
		windows = append(windows, win)
	}
	return DecisionWindows, windows, nil
}

func (r *Resolver) weeklyStage(ctx context.Context, personID int64, date time.Time) (Decision, []interval.Interval, error) {
	rule, err := r.src.WeeklyRuleFor(ctx, personID, timeutil.ISOWeekday(date))
	if err != nil {
		return DecisionContinue, nil, fmt.Errorf("load weekly rule: %w", err)
	}
	if rule == nil {
		return DecisionContinue, nil, nil
	}
	if rule.Closed {
		return DecisionUnavailable, nil, nil
	}
	win, err := interval.FromClockRange(rule.StartTime, rule.EndTime)
	if err != nil {
		return DecisionContinue, nil, fmt.Errorf("weekly rule %d: %w", rule.ID, err)
	}
	return DecisionWindows, []interval.Interval{win}, nil
}
