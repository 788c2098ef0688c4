package dto

import (
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/geo"
	"time"
)

type PlaceResponse struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type PositionResponse struct {
	ActorID    string    `json:"actor_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ObservedAt time.Time `json:"observed_at"`
}

type MarkerResponse struct {
	PositionResponse
	IsDriver   bool   `json:"is_driver"`
	Attendance string `json:"attendance,omitempty"`
}

type OptimizationResponse struct {
	OrderedStops      []string `json:"ordered_stops"`
	TimeSavedMinutes  float64  `json:"time_saved_minutes"`
	DistanceSavedKm   float64  `json:"distance_saved_km"`
	DistanceSavedText string   `json:"distance_saved_text"`
	Notes             []string `json:"notes"`
	Degraded          bool     `json:"degraded"`
}

type TrackingResponse struct {
	RouteID        string                `json:"route_id"`
	RouteName      string                `json:"route_name"`
	Status         string                `json:"status"`
	Sequence       []PlaceResponse       `json:"sequence"`
	RemainingStops []PlaceResponse       `json:"remaining_stops"`
	CurrentStop    string                `json:"current_stop"`
	Polyline       [][2]float64          `json:"polyline"`
	ETAMinutes     *int                  `json:"eta_minutes"`
	ETAText        string                `json:"eta_text"`
	Vehicle        *PositionResponse     `json:"vehicle"`
	Markers        []MarkerResponse      `json:"markers"`
	PresentCount   int                   `json:"present_count"`
	AbsentCount    int                   `json:"absent_count"`
	EcoImpactKg    float64               `json:"eco_impact_kg"`
	Optimization   *OptimizationResponse `json:"optimization"`
	RerouteState   string                `json:"reroute_state"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func places(in []domain.NamedPlace) []PlaceResponse {
	out := make([]PlaceResponse, 0, len(in))
	for _, p := range in {
		out = append(out, PlaceResponse{Name: p.Name, Lat: p.Coordinates.Lat, Lng: p.Coordinates.Lng})
	}
	return out
}

func position(p domain.LivePosition) PositionResponse {
	return PositionResponse{
		ActorID:    p.ActorID,
		Lat:        p.Coordinates.Lat,
		Lng:        p.Coordinates.Lng,
		ObservedAt: p.ObservedAt,
	}
}

// FromView maps a tracking view onto its JSON form.
func FromView(v domain.TrackingView) TrackingResponse {
	res := TrackingResponse{
		RouteID:        v.RouteID,
		RouteName:      v.RouteName,
		Status:         string(v.Status),
		Sequence:       places(v.Sequence),
		RemainingStops: places(v.RemainingStops),
		CurrentStop:    v.CurrentStop,
		Polyline:       v.Polyline,
		ETAText:        "unknown",
		Markers:        make([]MarkerResponse, 0, len(v.Markers)),
		PresentCount:   v.PresentCount,
		AbsentCount:    v.AbsentCount,
		EcoImpactKg:    v.EcoImpactKg,
		RerouteState:   v.RerouteState,
		UpdatedAt:      v.UpdatedAt,
	}
	if res.Polyline == nil {
		res.Polyline = [][2]float64{}
	}

	if v.ETAKnown {
		eta := v.ETAMinutes
		res.ETAMinutes = &eta
		res.ETAText = geo.FormatEta(eta)
	}
	if v.Vehicle != nil {
		p := position(*v.Vehicle)
		res.Vehicle = &p
	}
	for _, m := range v.Markers {
		res.Markers = append(res.Markers, MarkerResponse{
			PositionResponse: position(domain.LivePosition{ActorID: m.ActorID, Coordinates: m.Coordinates, ObservedAt: m.ObservedAt}),
			IsDriver:         m.IsDriver,
			Attendance:       string(m.Attendance),
		})
	}
	if o := v.Optimization; o != nil {
		res.Optimization = &OptimizationResponse{
			OrderedStops:      append([]string{}, o.OrderedStopNames...),
			TimeSavedMinutes:  o.EstimatedTimeSaved.Minutes(),
			DistanceSavedKm:   o.EstimatedDistanceSavedKm,
			DistanceSavedText: geo.FormatDistance(o.EstimatedDistanceSavedKm),
			Notes:             append([]string{}, o.AdvisoryNotes...),
			Degraded:          o.Degraded,
		}
	}

	return res
}
