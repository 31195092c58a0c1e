package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitgrid/internal/model"
)

// AbsencesOverlapping returns absences for the person overlapping the
// instant range [dayStart, dayEnd). Open-ended absences always qualify once
// started.
func (db *DB) AbsencesOverlapping(ctx context.Context, personID int64, dayStart, dayEnd time.Time) ([]model.Absence, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, person_id, starts_at, ends_at
		FROM absences
		WHERE person_id = ?
		AND starts_at < ?
		AND (ends_at IS NULL OR ends_at >= ?)`,
		personID, dayEnd.UTC(), dayStart.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var absences []model.Absence
	for rows.Next() {
		var a model.Absence
		var endsAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.PersonID, &a.StartsAt, &endsAt); err != nil {
			return nil, err
		}
		if endsAt.Valid {
			t := endsAt.Time
			a.EndsAt = &t
		}
		absences = append(absences, a)
	}
	return absences, rows.Err()
}

// VacationsCovering returns vacations whose inclusive date range covers the
// YYYY-MM-DD date.
func (db *DB) VacationsCovering(ctx context.Context, personID int64, date string) ([]model.Vacation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, person_id, from_date, to_date
		FROM vacations
		WHERE person_id = ? AND from_date <= ? AND to_date >= ?`,
		personID, date, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vacations []model.Vacation
	for rows.Next() {
		var v model.Vacation
		if err := rows.Scan(&v.ID, &v.PersonID, &v.FromDate, &v.ToDate); err != nil {
			return nil, err
		}
		vacations = append(vacations, v)
	}
	return vacations, rows.Err()
}

// OverridesOn returns every override window for (person, date), ordered by
// start time.
func (db *DB) OverridesOn(ctx context.Context, personID int64, date string) ([]model.DateOverride, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, person_id, date, start_time, end_time, created_at
		FROM date_overrides
		WHERE person_id = ? AND date = ?
		ORDER BY start_time`,
		personID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []model.DateOverride
	for rows.Next() {
		var o model.DateOverride
		if err := rows.Scan(&o.ID, &o.PersonID, &o.Date, &o.StartTime, &o.EndTime, &o.CreatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// WeeklyRuleFor returns the active weekly rule for (person, isoWeekday), or
// nil when none exists.
func (db *DB) WeeklyRuleFor(ctx context.Context, personID int64, isoWeekday int) (*model.WeeklyRule, error) {
	var r model.WeeklyRule
	var startTime, endTime sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, person_id, weekday, start_time, end_time, closed, created_at, updated_at
		FROM weekly_rules
		WHERE person_id = ? AND weekday = ?
		LIMIT 1`,
		personID, isoWeekday,
	).Scan(&r.ID, &r.PersonID, &r.Weekday, &startTime, &endTime, &r.Closed, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.StartTime = startTime.String
	r.EndTime = endTime.String
	return &r, nil
}

// UpsertWeeklyRule creates or replaces the rule for (person, weekday).
func (db *DB) UpsertWeeklyRule(ctx context.Context, r *model.WeeklyRule) error {
	if r == nil {
		return fmt.Errorf("weekly rule is nil")
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO weekly_rules (person_id, weekday, start_time, end_time, closed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(person_id, weekday) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			closed = excluded.closed,
			updated_at = excluded.updated_at`,
		r.PersonID, r.Weekday, r.StartTime, r.EndTime, r.Closed, now, now,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// CreateDateOverride adds one override window for (person, date).
func (db *DB) CreateDateOverride(ctx context.Context, o *model.DateOverride) error {
	if o == nil {
		return fmt.Errorf("override is nil")
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO date_overrides (person_id, date, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		o.PersonID, o.Date, o.StartTime, o.EndTime, time.Now(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		o.ID = id
	}
	return nil
}

// CreateVacation adds an inclusive whole-day unavailability range.
func (db *DB) CreateVacation(ctx context.Context, v *model.Vacation) error {
	if v == nil {
		return fmt.Errorf("vacation is nil")
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO vacations (person_id, from_date, to_date) VALUES (?, ?, ?)`,
		v.PersonID, v.FromDate, v.ToDate,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		v.ID = id
	}
	return nil
}

// CreateAbsence adds an absence; a nil EndsAt keeps it open-ended.
func (db *DB) CreateAbsence(ctx context.Context, a *model.Absence) error {
	if a == nil {
		return fmt.Errorf("absence is nil")
	}
	var endsAt any
	if a.EndsAt != nil {
		endsAt = a.EndsAt.UTC()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO absences (person_id, starts_at, ends_at) VALUES (?, ?, ?)`,
		a.PersonID, a.StartsAt.UTC(), endsAt,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

// ResolveAbsence closes an open-ended absence.
func (db *DB) ResolveAbsence(ctx context.Context, id int64, endsAt time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE absences SET ends_at = ? WHERE id = ?`, endsAt.UTC(), id)
	return err
}
