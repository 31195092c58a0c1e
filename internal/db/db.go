package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the scheduling store. Instants are bound in UTC:
// sqlite compares DATETIME text lexically, and mixed offsets would corrupt
// range scans at day boundaries.
type DB struct {
	*sql.DB
}

// New opens the database at path and creates missing tables.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(sqlDB); err != nil {
		return nil, err
	}
	return &DB{sqlDB}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			slot_anchor_minute INTEGER NOT NULL DEFAULT 30,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (location_id) REFERENCES locations(id)
		)`,

		`CREATE TABLE IF NOT EXISTS weekly_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			person_id INTEGER NOT NULL,
			weekday INTEGER NOT NULL CHECK (weekday BETWEEN 1 AND 7),
			start_time TEXT,
			end_time TEXT,
			closed BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (person_id, weekday)
		)`,

		`CREATE TABLE IF NOT EXISTS date_overrides (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			person_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS vacations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			person_id INTEGER NOT NULL,
			from_date TEXT NOT NULL,
			to_date TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS absences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			person_id INTEGER NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS regular_bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trainer_id INTEGER NOT NULL,
			room_id INTEGER NOT NULL,
			location_id INTEGER NOT NULL,
			starts_at DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 60,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id),
			FOREIGN KEY (location_id) REFERENCES locations(id)
		)`,

		`CREATE TABLE IF NOT EXISTS personal_bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			primary_user_id INTEGER NOT NULL,
			title TEXT,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS personal_booking_users (
			booking_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (booking_id, user_id),
			FOREIGN KEY (booking_id) REFERENCES personal_bookings(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_weekly_rules_person ON weekly_rules(person_id, weekday)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_person_date ON date_overrides(person_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_vacations_person ON vacations(person_id, from_date, to_date)`,
		`CREATE INDEX IF NOT EXISTS idx_absences_person ON absences(person_id, starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_regular_bookings_trainer ON regular_bookings(trainer_id, starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_regular_bookings_room ON regular_bookings(room_id, starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_personal_bookings_times ON personal_bookings(starts_at, ends_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// placeholders builds "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
