package api

import (
	"log/slog"
	"net/http"
	"route-tracking-service/internal/api/handlers"
	"route-tracking-service/internal/ports"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(tracker handlers.Tracker, geocoder ports.Geocoder, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	tracking := &handlers.TrackingHandler{Tracker: tracker}
	stream := &handlers.StreamHandler{Tracker: tracker, Logger: logger}
	geocode := &handlers.GeocodeHandler{Geocoder: geocoder}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("GET /geocode", geocode.Resolve)

	mux.HandleFunc("GET /routes/{id}/tracking", tracking.View)
	mux.HandleFunc("DELETE /routes/{id}/tracking", tracking.Stop)
	mux.HandleFunc("POST /routes/{id}/positions", tracking.Position)
	mux.HandleFunc("POST /routes/{id}/attendance", tracking.Attendance)
	mux.HandleFunc("POST /routes/{id}/bookings", tracking.Booking)
	mux.HandleFunc("POST /routes/{id}/optimize", tracking.Optimize)
	mux.HandleFunc("GET /ws/routes/{id}", stream.Serve)

	return requestIDMiddleware(loggingMiddleware(logger, mux))
}
