package domain

import "time"

// Latest observed position of one actor (driver or rider) on a Route.
type LivePosition struct {
	RouteID     string
	ActorID     string
	Coordinates Coordinates
	ObservedAt  time.Time
}
