package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/db"
	"route-tracking-service/internal/platform/obs"
	"testing"
	"time"
)

const seedJSON = `{
  "routes": [
    {
      "id": "r1",
      "name": "Seeb morning",
      "start_place": "Seeb",
      "end_place": "School",
      "driver_id": "d1",
      "scheduled_start": "2026-03-02T06:30:00Z",
      "status": "active",
      "bookings": [
        {"booking_id": "b1", "rider_id": "u1", "pickup_place": "Ruwi"},
        {"booking_id": "b2", "rider_id": "u2", "pickup_place": "Qurum"}
      ]
    }
  ],
  "places": [
    {"name": "Bausher Heights", "lat": 23.5553, "lng": 58.3989}
  ]
}`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	if err := InitSchema(ctx, conn); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(ctx, conn, db.SQLite, path); err != nil {
		t.Fatalf("SeedFromJSON: %v", err)
	}
	// Seeding twice must be harmless.
	if err := SeedFromJSON(ctx, conn, db.SQLite, path); err != nil {
		t.Fatalf("SeedFromJSON again: %v", err)
	}
	return conn
}

func TestGetRoute(t *testing.T) {
	repo := NewSQLRouteRepository(newTestDB(t), db.SQLite, obs.Discard())
	ctx := context.Background()

	r, err := repo.GetRoute(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if r.StartPlace != "Seeb" || r.EndPlace != "School" || r.DriverID != "d1" || r.Status != domain.RouteStatusActive {
		t.Fatalf("route = %+v", r)
	}
	if want := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC); !r.ScheduledStartTime.Equal(want) {
		t.Fatalf("scheduled start = %v, want %v", r.ScheduledStartTime, want)
	}

	if _, err := repo.GetRoute(ctx, "missing"); !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}
}

func TestListStopsAndAttendance(t *testing.T) {
	repo := NewSQLRouteRepository(newTestDB(t), db.SQLite, obs.Discard())
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	stops, err := repo.ListStops(ctx, "r1", day)
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	if len(stops) != 2 || stops[0].BookingID != "b1" || stops[1].PickupPlace != "Qurum" {
		t.Fatalf("stops = %+v", stops)
	}
	for _, s := range stops {
		if s.Attendance != domain.AttendancePending || s.RouteID != "r1" {
			t.Fatalf("stop = %+v, want pending on r1", s)
		}
	}

	mark := domain.AttendanceEvent{RouteID: "r1", RiderID: "u1", Status: domain.AttendanceAbsent, Date: day}
	if err := repo.MarkAttendance(ctx, mark); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	mark.Status = domain.AttendancePresent
	mark.RiderID = "u2"
	if err := repo.MarkAttendance(ctx, mark); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	// Later marks replace earlier ones for the same day.
	mark.Status = domain.AttendanceAbsent
	if err := repo.MarkAttendance(ctx, mark); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}

	stops, err = repo.ListStops(ctx, "r1", day)
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	if stops[0].Attendance != domain.AttendanceAbsent || stops[1].Attendance != domain.AttendanceAbsent {
		t.Fatalf("stops = %+v", stops)
	}

	// Marks are per day.
	stops, err = repo.ListStops(ctx, "r1", day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	if stops[0].Attendance != domain.AttendancePending {
		t.Fatalf("next day stop = %+v, want pending", stops[0])
	}

	err = repo.MarkAttendance(ctx, domain.AttendanceEvent{RouteID: "r1", RiderID: "ghost", Status: domain.AttendanceAbsent, Date: day})
	if !errors.Is(err, domain.ErrUnknownStop) {
		t.Fatalf("err = %v, want ErrUnknownStop", err)
	}
}

func TestAddBooking(t *testing.T) {
	repo := NewSQLRouteRepository(newTestDB(t), db.SQLite, obs.Discard())
	ctx := context.Background()

	newStop := domain.Stop{BookingID: "b3", RouteID: "r1", RiderID: "u3", PickupPlace: "Ghubra"}
	if err := repo.AddBooking(ctx, newStop); err != nil {
		t.Fatalf("AddBooking: %v", err)
	}
	if err := repo.AddBooking(ctx, newStop); err != nil {
		t.Fatalf("AddBooking identical: %v", err)
	}

	conflict := newStop
	conflict.PickupPlace = "Seeb"
	if err := repo.AddBooking(ctx, conflict); !errors.Is(err, domain.ErrDuplicateBooking) {
		t.Fatalf("err = %v, want ErrDuplicateBooking", err)
	}

	missing := domain.Stop{BookingID: "b4", RouteID: "nope", RiderID: "u4", PickupPlace: "Seeb"}
	if err := repo.AddBooking(ctx, missing); !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}

	stops, err := repo.ListStops(ctx, "r1", time.Now())
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	if len(stops) != 3 || stops[2].BookingID != "b3" {
		t.Fatalf("stops = %+v, want b3 appended last", stops)
	}
}

func TestPlaceStore(t *testing.T) {
	store := NewSQLPlaceStore(newTestDB(t), db.SQLite, obs.Discard())
	ctx := context.Background()

	if err := store.PutMany(ctx, []domain.NamedPlace{
		{Name: "Azaiba", Coordinates: domain.Coordinates{Lat: 23.59, Lng: 58.37}},
		{Name: "Bausher Heights", Coordinates: domain.Coordinates{Lat: 23.56, Lng: 58.40}},
	}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	places, err := store.ListPlaces(ctx)
	if err != nil {
		t.Fatalf("ListPlaces: %v", err)
	}
	if len(places) != 2 || places[0].Name != "Azaiba" || places[1].Coordinates.Lat != 23.56 {
		t.Fatalf("places = %+v", places)
	}

	bad := []domain.NamedPlace{{Name: "Nowhere", Coordinates: domain.Coordinates{Lat: 200}}}
	if err := store.PutMany(ctx, bad); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
	}
}

func TestSeedRejectsInvalidRoute(t *testing.T) {
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := InitSchema(ctx, conn); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(`{"routes":[{"id":"r9","start_place":"Seeb"}]}`), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(ctx, conn, db.SQLite, path); err == nil {
		t.Fatalf("expected an error for a route without end_place")
	}
}
