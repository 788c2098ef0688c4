package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/db"
	"strings"
	"time"
)

type BookingSeed struct {
	BookingID   string `json:"booking_id"`
	RiderID     string `json:"rider_id"`
	PickupPlace string `json:"pickup_place"`
}

type RouteSeed struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	StartPlace     string        `json:"start_place"`
	EndPlace       string        `json:"end_place"`
	DriverID       string        `json:"driver_id"`
	ScheduledStart string        `json:"scheduled_start"`
	Status         string        `json:"status"`
	Bookings       []BookingSeed `json:"bookings"`
}

type PlaceSeed struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type Seed struct {
	Routes []RouteSeed `json:"routes"`
	Places []PlaceSeed `json:"places"`
}

// SeedFromJSON loads routes, their bookings and extra places from a JSON
// file. Rows are upserted so the seed can be applied repeatedly.
func SeedFromJSON(ctx context.Context, conn *sql.DB, d db.Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	routes := make([]domain.Route, 0, len(data.Routes))
	for i, item := range data.Routes {
		r := domain.Route{
			ID:         strings.TrimSpace(item.ID),
			Name:       strings.TrimSpace(item.Name),
			StartPlace: strings.TrimSpace(item.StartPlace),
			EndPlace:   strings.TrimSpace(item.EndPlace),
			DriverID:   strings.TrimSpace(item.DriverID),
			Status:     domain.RouteStatus(strings.TrimSpace(item.Status)),
		}
		if r.ID == "" || r.StartPlace == "" || r.EndPlace == "" {
			return fmt.Errorf("seed: route at index %d: id, start_place and end_place are required", i+1)
		}
		if item.ScheduledStart != "" {
			t, err := time.Parse(time.RFC3339, item.ScheduledStart)
			if err != nil {
				return fmt.Errorf("seed: route %q: scheduled_start: %w", r.ID, err)
			}
			r.ScheduledStartTime = t
		}
		routes = append(routes, r)
	}

	places := make([]domain.NamedPlace, 0, len(data.Places))
	for _, p := range data.Places {
		places = append(places, domain.NamedPlace{
			Name:        p.Name,
			Coordinates: domain.Coordinates{Lat: p.Lat, Lng: p.Lng},
		})
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	booking, err := tx.PrepareContext(ctx, d.Rebind(`
	INSERT INTO bookings (booking_id, route_id, rider_id, pickup_place, position)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (booking_id) DO UPDATE
	SET route_id = excluded.route_id,
		rider_id = excluded.rider_id,
		pickup_place = excluded.pickup_place,
		position = excluded.position;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare booking insert: %w", err)
	}
	defer booking.Close()

	for i, r := range routes {
		if err := putRoute(ctx, tx, d, r); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		for j, b := range data.Routes[i].Bookings {
			id := strings.TrimSpace(b.BookingID)
			rider := strings.TrimSpace(b.RiderID)
			if id == "" || rider == "" {
				return fmt.Errorf("seed: route %q booking at index %d: booking_id and rider_id are required", r.ID, j+1)
			}
			if _, err := booking.ExecContext(ctx, id, r.ID, rider, strings.TrimSpace(b.PickupPlace), j+1); err != nil {
				return fmt.Errorf("seed: insert booking %q: %w", id, err)
			}
		}
	}

	if len(places) > 0 {
		if err := putPlaces(ctx, tx, d, places); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
