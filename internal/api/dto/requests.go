package dto

import "time"

type PositionRequest struct {
	ActorID string  `json:"actor_id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	// ObservedAt defaults to the time the server received the position.
	ObservedAt *time.Time `json:"observed_at"`
}

type PositionResult struct {
	Result string `json:"result"`
}

type AttendanceRequest struct {
	RiderID string `json:"rider_id"`
	Status  string `json:"status"`
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date"`
}

type BookingRequest struct {
	BookingID   string `json:"booking_id"`
	RiderID     string `json:"rider_id"`
	PickupPlace string `json:"pickup_place"`
}

type GeocodeResponse struct {
	Query string  `json:"query"`
	Found bool    `json:"found"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}
