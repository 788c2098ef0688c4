package ports

import "context"

// One attendance entry sent to the optimizer.
// PickupLocation is nil when the booking has no pickup place.
type AttendanceEntry struct {
	ID             string  `json:"id"`
	StudentID      string  `json:"student_id"`
	Status         string  `json:"status"`
	PickupLocation *string `json:"pickup_location"`
}

type OptimizationRequest struct {
	RouteID    string            `json:"routeId"`
	Attendance []AttendanceEntry `json:"attendance"`
}

// Optimizer answer. Only OptimizedRoute is authoritative; the rest is advisory.
type OptimizationResponse struct {
	OptimizedRoute  []string `json:"optimizedRoute"`
	TimeSaved       string   `json:"timeSaved"`
	DistanceSaved   string   `json:"distanceSaved"`
	Recommendations []string `json:"recommendations"`
}

// Contract for the external route-optimization service.
type RouteOptimizer interface {
	Optimize(ctx context.Context, req OptimizationRequest) (*OptimizationResponse, error)
}
