package ports

import (
	"context"
	"route-tracking-service/internal/domain"
	"time"
)

// Port: the booking and attendance data owned by other parts of the product.
type RouteRepository interface {
	// GetRoute returns domain.ErrRouteNotFound for unknown ids.
	GetRoute(ctx context.Context, routeID string) (*domain.Route, error)
	// ListStops returns the route's bookings in booking order, with the
	// attendance marked for the given day.
	ListStops(ctx context.Context, routeID string, day time.Time) ([]domain.Stop, error)
	MarkAttendance(ctx context.Context, ev domain.AttendanceEvent) error
	AddBooking(ctx context.Context, stop domain.Stop) error
}
