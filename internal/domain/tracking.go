package domain

import "time"

// A map marker for one live position.
type Marker struct {
	ActorID     string
	Coordinates Coordinates
	IsDriver    bool
	Attendance  AttendanceStatus
	ObservedAt  time.Time
}

// Read model consumed by dashboards and maps.
// ETAMinutes is meaningful only when ETAKnown is true.
type TrackingView struct {
	RouteID        string
	RouteName      string
	Status         RouteStatus
	Sequence       []NamedPlace
	RemainingStops []NamedPlace
	CurrentStop    string
	Polyline       [][2]float64
	ETAKnown       bool
	ETAMinutes     int
	Vehicle        *LivePosition
	Markers        []Marker
	PresentCount   int
	AbsentCount    int
	EcoImpactKg    float64
	Optimization   *OptimizationResult
	RerouteState   string
	UpdatedAt      time.Time
}
