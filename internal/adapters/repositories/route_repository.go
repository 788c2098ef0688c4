package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/db"
	"route-tracking-service/internal/platform/obs"
	"strings"
	"time"
)

// SQLRouteRepository implements ports.RouteRepository on database/sql.
type SQLRouteRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
	Logger  *slog.Logger
}

func NewSQLRouteRepository(conn *sql.DB, dialect db.Dialect, logger *slog.Logger) *SQLRouteRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLRouteRepository{DB: conn, Dialect: dialect, Logger: logger}
}

func (s *SQLRouteRepository) GetRoute(ctx context.Context, routeID string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, s.Logger, "routes.GetRoute")(&err)

	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		id,
		name,
		start_place,
		end_place,
		driver_id,
		scheduled_start,
		status
	FROM routes
	WHERE id = ?;
	`)

	var (
		r     domain.Route
		start string
		st    string
	)
	err = s.DB.QueryRowContext(ctx, query, routeID).Scan(
		&r.ID, &r.Name, &r.StartPlace, &r.EndPlace, &r.DriverID, &start, &st,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %q: %w", routeID, domain.ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %q: query routes table: %w", routeID, err)
	}

	if start != "" {
		t, perr := time.Parse(time.RFC3339, start)
		if perr != nil {
			return nil, fmt.Errorf("get route %q: scheduled_start %q: %w", routeID, start, perr)
		}
		r.ScheduledStartTime = t
	}
	r.Status = domain.RouteStatus(st)

	return &r, nil
}

// ListStops returns the route's bookings in booking order with the
// attendance marked for day. Unmarked riders are pending.
func (s *SQLRouteRepository) ListStops(ctx context.Context, routeID string, day time.Time) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, s.Logger, "routes.ListStops")(&err)

	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		b.booking_id,
		b.rider_id,
		b.pickup_place,
		COALESCE(a.status, '')
	FROM bookings b
	LEFT JOIN attendance a
		ON a.route_id = b.route_id
		AND a.rider_id = b.rider_id
		AND a.day = ?
	WHERE b.route_id = ?
	ORDER BY b.position, b.booking_id;
	`)

	rows, err := s.DB.QueryContext(ctx, query, dayKey(day), routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops: query bookings table: %w", err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 16)
	for rows.Next() {
		st := domain.Stop{RouteID: routeID}
		var status string
		if err := rows.Scan(&st.BookingID, &st.RiderID, &st.PickupPlace, &status); err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		att, perr := domain.ParseAttendanceStatus(status)
		if perr != nil {
			s.Logger.Warn("unknown attendance status stored, treating as pending", "route_id", routeID, "rider_id", st.RiderID, "status", status)
			att = domain.AttendancePending
		}
		st.Attendance = att
		stops = append(stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return stops, nil
}

// MarkAttendance upserts the rider's mark for the event's day. The rider
// must hold a booking on the route.
func (s *SQLRouteRepository) MarkAttendance(ctx context.Context, ev domain.AttendanceEvent) (err error) {
	defer obs.Time(ctx, s.Logger, "routes.MarkAttendance")(&err)

	if s.DB == nil {
		return errors.New("route repository: DB is nil")
	}
	if ev.Date.IsZero() {
		return errors.New("mark attendance: date must be set")
	}

	var n int
	countQuery := s.Dialect.Rebind(`
	SELECT COUNT(*) FROM bookings WHERE route_id = ? AND rider_id = ?;
	`)
	if err := s.DB.QueryRowContext(ctx, countQuery, ev.RouteID, ev.RiderID).Scan(&n); err != nil {
		return fmt.Errorf("mark attendance: query bookings table: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark attendance for rider %q on route %q: %w", ev.RiderID, ev.RouteID, domain.ErrUnknownStop)
	}

	upsert := s.Dialect.Rebind(`
	INSERT INTO attendance (route_id, rider_id, day, status)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (route_id, rider_id, day) DO UPDATE
	SET status = excluded.status;
	`)
	if _, err := s.DB.ExecContext(ctx, upsert, ev.RouteID, ev.RiderID, dayKey(ev.Date), string(ev.Status)); err != nil {
		return fmt.Errorf("mark attendance: upsert: %w", err)
	}

	return nil
}

// AddBooking appends a booking at the end of the route's booking order.
// Re-adding an identical booking is a no-op.
func (s *SQLRouteRepository) AddBooking(ctx context.Context, stop domain.Stop) (err error) {
	defer obs.Time(ctx, s.Logger, "routes.AddBooking")(&err)

	if s.DB == nil {
		return errors.New("route repository: DB is nil")
	}
	if strings.TrimSpace(stop.BookingID) == "" || strings.TrimSpace(stop.RiderID) == "" {
		return errors.New("add booking: booking id and rider id must be non-empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add booking: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	routeQuery := s.Dialect.Rebind(`SELECT COUNT(*) FROM routes WHERE id = ?;`)
	if err := tx.QueryRowContext(ctx, routeQuery, stop.RouteID).Scan(&exists); err != nil {
		return fmt.Errorf("add booking: query routes table: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("add booking %q: route %q: %w", stop.BookingID, stop.RouteID, domain.ErrRouteNotFound)
	}

	var curRoute, curRider, curPickup string
	bookingQuery := s.Dialect.Rebind(`
	SELECT route_id, rider_id, pickup_place FROM bookings WHERE booking_id = ?;
	`)
	err = tx.QueryRowContext(ctx, bookingQuery, stop.BookingID).Scan(&curRoute, &curRider, &curPickup)
	switch {
	case err == nil:
		if curRoute == stop.RouteID && curRider == stop.RiderID && curPickup == stop.PickupPlace {
			return nil
		}
		return fmt.Errorf("add booking %q: %w", stop.BookingID, domain.ErrDuplicateBooking)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("add booking: query bookings table: %w", err)
	}

	insert := s.Dialect.Rebind(`
	INSERT INTO bookings (booking_id, route_id, rider_id, pickup_place, position)
	SELECT ?, ?, ?, ?, COALESCE(MAX(position), 0) + 1
	FROM bookings
	WHERE route_id = ?;
	`)
	if _, err := tx.ExecContext(ctx, insert, stop.BookingID, stop.RouteID, stop.RiderID, stop.PickupPlace, stop.RouteID); err != nil {
		return fmt.Errorf("add booking %q: insert: %w", stop.BookingID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add booking: commit tx: %w", err)
	}
	return nil
}

func putRoute(ctx context.Context, q querier, d db.Dialect, r domain.Route) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("put route: id must be non-empty")
	}
	status := r.Status
	if status == "" {
		status = domain.RouteStatusPending
	}
	start := ""
	if !r.ScheduledStartTime.IsZero() {
		start = r.ScheduledStartTime.Format(time.RFC3339)
	}

	query := d.Rebind(`
	INSERT INTO routes (id, name, start_place, end_place, driver_id, scheduled_start, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = excluded.name,
		start_place = excluded.start_place,
		end_place = excluded.end_place,
		driver_id = excluded.driver_id,
		scheduled_start = excluded.scheduled_start,
		status = excluded.status;
	`)
	if _, err := q.ExecContext(ctx, query, r.ID, r.Name, r.StartPlace, r.EndPlace, r.DriverID, start, string(status)); err != nil {
		return fmt.Errorf("put route %q: %w", r.ID, err)
	}
	return nil
}
