package optimizer

import (
	"context"
	"route-tracking-service/internal/ports"
)

// StaticOptimizer returns the present pickups in the order they were sent.
// It stands in for the remote service in local runs.
type StaticOptimizer struct {
	Recommendations []string
}

func NewStaticOptimizer(recommendations ...string) *StaticOptimizer {
	return &StaticOptimizer{Recommendations: recommendations}
}

func (o *StaticOptimizer) Optimize(ctx context.Context, req ports.OptimizationRequest) (*ports.OptimizationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]string, 0, len(req.Attendance))
	for _, e := range req.Attendance {
		if e.Status == "absent" || e.PickupLocation == nil {
			continue
		}
		order = append(order, *e.PickupLocation)
	}

	return &ports.OptimizationResponse{
		OptimizedRoute:  order,
		TimeSaved:       "0 minutes",
		DistanceSaved:   "0 km",
		Recommendations: append([]string(nil), o.Recommendations...),
	}, nil
}
