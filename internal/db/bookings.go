package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitgrid/internal/model"
)

// RoomByID returns a room, or nil when it does not exist.
func (db *DB) RoomByID(ctx context.Context, roomID int64) (*model.Room, error) {
	var r model.Room
	err := db.QueryRowContext(ctx, `
		SELECT id, location_id, name, slot_anchor_minute, created_at
		FROM rooms WHERE id = ?`,
		roomID,
	).Scan(&r.ID, &r.LocationID, &r.Name, &r.SlotAnchorMinute, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateLocation adds a studio site.
func (db *DB) CreateLocation(ctx context.Context, l *model.Location) error {
	if l == nil {
		return fmt.Errorf("location is nil")
	}
	res, err := db.ExecContext(ctx, `INSERT INTO locations (name, created_at) VALUES (?, ?)`, l.Name, time.Now())
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		l.ID = id
	}
	return nil
}

// CreateRoom adds a room; a negative anchor falls back to the half-hour grid.
func (db *DB) CreateRoom(ctx context.Context, r *model.Room) error {
	if r == nil {
		return fmt.Errorf("room is nil")
	}
	if r.SlotAnchorMinute < 0 || r.SlotAnchorMinute > 59 {
		r.SlotAnchorMinute = 30
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO rooms (location_id, name, slot_anchor_minute, created_at)
		VALUES (?, ?, ?, ?)`,
		r.LocationID, r.Name, r.SlotAnchorMinute, time.Now(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// RegularBookingsOn returns occupying regular bookings whose session overlaps
// [dayStart, dayEnd), filtered by trainer and/or room when those ids are
// positive, excluding excludeID when positive. Cancelled statuses are
// filtered here so callers never see rows that do not occupy time. A session
// spanning midnight is returned for both days it touches.
func (db *DB) RegularBookingsOn(ctx context.Context, dayStart, dayEnd time.Time, trainerID, roomID, excludeID int64) ([]model.RegularBooking, error) {
	query := `
		SELECT id, trainer_id, room_id, location_id, starts_at, duration_minutes, status, created_at, updated_at
		FROM regular_bookings
		WHERE datetime(starts_at) < datetime(?)
		AND datetime(starts_at, '+' || duration_minutes || ' minutes') > datetime(?)
		AND status NOT IN (?, ?)`
	args := []any{dayEnd.UTC(), dayStart.UTC(), model.StatusCanceled, model.StatusRejected}

	if trainerID > 0 {
		query += " AND trainer_id = ?"
		args = append(args, trainerID)
	}
	if roomID > 0 {
		query += " AND room_id = ?"
		args = append(args, roomID)
	}
	if excludeID > 0 {
		query += " AND id != ?"
		args = append(args, excludeID)
	}
	query += " ORDER BY starts_at"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.RegularBooking
	for rows.Next() {
		var b model.RegularBooking
		if err := rows.Scan(
			&b.ID, &b.TrainerID, &b.RoomID, &b.LocationID,
			&b.StartsAt, &b.DurationMinutes, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CreateRegularBooking adds a training session row.
func (db *DB) CreateRegularBooking(ctx context.Context, b *model.RegularBooking) error {
	if b == nil {
		return fmt.Errorf("booking is nil")
	}
	if b.Status == "" {
		b.Status = model.StatusPending
	}
	if b.DurationMinutes <= 0 {
		b.DurationMinutes = model.DefaultSessionMinutes
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO regular_bookings (trainer_id, room_id, location_id, starts_at, duration_minutes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.TrainerID, b.RoomID, b.LocationID, b.StartsAt.UTC(), b.DurationMinutes, b.Status, now, now,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		b.ID = id
	}
	return nil
}

// UpdateRegularBookingStatus moves a booking between lifecycle statuses.
func (db *DB) UpdateRegularBookingStatus(ctx context.Context, id int64, status string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE regular_bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	return err
}

// PersonalBookingsOn returns personal bookings overlapping [dayStart, dayEnd)
// whose participant set (primary plus attached users) intersects personIDs,
// excluding excludeID when positive.
func (db *DB) PersonalBookingsOn(ctx context.Context, dayStart, dayEnd time.Time, personIDs []int64, excludeID int64) ([]model.PersonalBooking, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}

	ph := placeholders(len(personIDs))
	query := fmt.Sprintf(`
		SELECT DISTINCT b.id, b.primary_user_id, b.title, b.starts_at, b.ends_at, b.created_at, b.updated_at
		FROM personal_bookings b
		LEFT JOIN personal_booking_users u ON u.booking_id = b.id
		WHERE b.starts_at < ? AND b.ends_at > ?
		AND (b.primary_user_id IN (%s) OR u.user_id IN (%s))`, ph, ph)
	args := []any{dayEnd.UTC(), dayStart.UTC()}
	args = append(args, int64Args(personIDs)...)
	args = append(args, int64Args(personIDs)...)

	if excludeID > 0 {
		query += " AND b.id != ?"
		args = append(args, excludeID)
	}
	query += " ORDER BY b.starts_at"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.PersonalBooking
	for rows.Next() {
		var b model.PersonalBooking
		var title sql.NullString
		if err := rows.Scan(&b.ID, &b.PrimaryUserID, &title, &b.StartsAt, &b.EndsAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Title = title.String
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		userIDs, err := db.personalBookingUsers(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].UserIDs = userIDs
	}
	return bookings, nil
}

func (db *DB) personalBookingUsers(ctx context.Context, bookingID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id FROM personal_booking_users WHERE booking_id = ? ORDER BY user_id`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PersonalBookingByID loads one personal booking with its participant rows,
// or nil when it does not exist.
func (db *DB) PersonalBookingByID(ctx context.Context, id int64) (*model.PersonalBooking, error) {
	var b model.PersonalBooking
	var title sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, primary_user_id, title, starts_at, ends_at, created_at, updated_at
		FROM personal_bookings WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.PrimaryUserID, &title, &b.StartsAt, &b.EndsAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Title = title.String
	b.UserIDs, err = db.personalBookingUsers(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreatePersonalBooking inserts the booking and its participant rows in one
// transaction.
func (db *DB) CreatePersonalBooking(ctx context.Context, b *model.PersonalBooking) error {
	if b == nil {
		return fmt.Errorf("booking is nil")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO personal_bookings (primary_user_id, title, starts_at, ends_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.PrimaryUserID, b.Title, b.StartsAt.UTC(), b.EndsAt.UTC(), now, now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id

	if err := insertBookingUsers(ctx, tx, id, b.UserIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdatePersonalBooking rewrites the booking row and replaces its
// participant rows in one transaction.
func (db *DB) UpdatePersonalBooking(ctx context.Context, b *model.PersonalBooking) error {
	if b == nil || b.ID <= 0 {
		return fmt.Errorf("booking id is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE personal_bookings
		SET primary_user_id = ?, title = ?, starts_at = ?, ends_at = ?, updated_at = ?
		WHERE id = ?`,
		b.PrimaryUserID, b.Title, b.StartsAt.UTC(), b.EndsAt.UTC(), time.Now(), b.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM personal_booking_users WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	if err := insertBookingUsers(ctx, tx, b.ID, b.UserIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePersonalBooking removes the booking and cascades its participants.
func (db *DB) DeletePersonalBooking(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM personal_bookings WHERE id = ?`, id)
	return err
}

func insertBookingUsers(ctx context.Context, tx *sql.Tx, bookingID int64, userIDs []int64) error {
	for _, uid := range userIDs {
		if uid <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO personal_booking_users (booking_id, user_id) VALUES (?, ?)`,
			bookingID, uid,
		); err != nil {
			return err
		}
	}
	return nil
}
