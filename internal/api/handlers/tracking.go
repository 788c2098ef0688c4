package handlers

import (
	"context"
	"net/http"
	"route-tracking-service/internal/api/dto"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/services"
	"strings"
	"time"
)

// Tracker is the session registry the handlers drive.
type Tracker interface {
	Open(ctx context.Context, routeID string) (*services.Session, error)
	Close(routeID string) error
	IngestPosition(ctx context.Context, pos domain.LivePosition) (services.IngestResult, error)
	HandleAttendance(ctx context.Context, ev domain.AttendanceEvent) error
	AddBooking(ctx context.Context, stop domain.Stop) error
}

type TrackingHandler struct {
	Tracker Tracker
	Now     func() time.Time
}

func (h *TrackingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func routeID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}

// View returns the route's current tracking view, opening a session when needed.
func (h *TrackingHandler) View(w http.ResponseWriter, r *http.Request) {
	s, err := h.Tracker.Open(r.Context(), routeID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	v, err := s.View(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromView(v))
}

// Stop ends tracking for the route.
func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Close(routeID(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Optimize schedules a re-optimization; the result arrives with the next view.
func (h *TrackingHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	s, err := h.Tracker.Open(r.Context(), routeID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.RequestOptimization(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": services.StateScheduled.String()})
}

// Position ingests one live position for the route.
func (h *TrackingHandler) Position(w http.ResponseWriter, r *http.Request) {
	var req dto.PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := strings.TrimSpace(req.ActorID)
	if actor == "" {
		writeError(w, r, http.StatusBadRequest, "actor_id is required")
		return
	}
	coords := domain.Coordinates{Lat: req.Lat, Lng: req.Lng}
	if !coords.Valid() {
		writeError(w, r, http.StatusBadRequest, "lat/lng out of range")
		return
	}
	observed := h.now().UTC()
	if req.ObservedAt != nil && !req.ObservedAt.IsZero() {
		observed = *req.ObservedAt
	}

	res, err := h.Tracker.IngestPosition(r.Context(), domain.LivePosition{
		RouteID:     routeID(r),
		ActorID:     actor,
		Coordinates: coords,
		ObservedAt:  observed,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.PositionResult{Result: res.String()})
}

// Attendance records a rider's attendance mark.
func (h *TrackingHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	var req dto.AttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rider := strings.TrimSpace(req.RiderID)
	if rider == "" {
		writeError(w, r, http.StatusBadRequest, "rider_id is required")
		return
	}
	status, err := domain.ParseAttendanceStatus(req.Status)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "status must be present, absent or pending")
		return
	}

	ev := domain.AttendanceEvent{RouteID: routeID(r), RiderID: rider, Status: status}
	if req.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, req.Date, time.Local)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ev.Date = d
	}

	if err := h.Tracker.HandleAttendance(r.Context(), ev); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Booking adds a rider's booking to the route.
func (h *TrackingHandler) Booking(w http.ResponseWriter, r *http.Request) {
	var req dto.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stop := domain.Stop{
		BookingID:   strings.TrimSpace(req.BookingID),
		RouteID:     routeID(r),
		RiderID:     strings.TrimSpace(req.RiderID),
		PickupPlace: strings.TrimSpace(req.PickupPlace),
		Attendance:  domain.AttendancePending,
	}
	if stop.BookingID == "" || stop.RiderID == "" || stop.PickupPlace == "" {
		writeError(w, r, http.StatusBadRequest, "booking_id, rider_id and pickup_place are required")
		return
	}

	if err := h.Tracker.AddBooking(r.Context(), stop); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
