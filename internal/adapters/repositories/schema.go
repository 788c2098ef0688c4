package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InitSchema creates the tracking tables. The statements are valid for
// both SQLite and Postgres.
func InitSchema(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_place TEXT NOT NULL,
		end_place TEXT NOT NULL,
		driver_id TEXT NOT NULL DEFAULT '',
		scheduled_start TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending'
	);
	`

	createBookingsQuery := `
	CREATE TABLE IF NOT EXISTS bookings (
		booking_id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(id),
		rider_id TEXT NOT NULL,
		pickup_place TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);
	`

	createAttendanceQuery := `
	CREATE TABLE IF NOT EXISTS attendance (
		route_id TEXT NOT NULL,
		rider_id TEXT NOT NULL,
		day TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (route_id, rider_id, day)
	);
	`

	createKnownPlacesQuery := `
	CREATE TABLE IF NOT EXISTS known_places (
		name TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_bookings_route_position
	ON bookings(route_id, position);
	`

	statements := []string{
		createRoutesQuery,
		createBookingsQuery,
		createAttendanceQuery,
		createKnownPlacesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)

// dayKey is the attendance day column format, in t's own location.
func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
