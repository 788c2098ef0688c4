package ports

import (
	"context"
	"route-tracking-service/internal/domain"
)

// Source of live positions for a route. The returned channel is closed
// when ctx is cancelled or the transport fails.
type PositionSource interface {
	Subscribe(ctx context.Context, routeID string) (<-chan domain.LivePosition, error)
}

type PositionPublisher interface {
	Publish(ctx context.Context, pos domain.LivePosition) error
}

// Handler for attendance changes coming from the attendance feed.
type AttendanceHandler func(ctx context.Context, ev domain.AttendanceEvent) error
