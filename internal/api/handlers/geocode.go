package handlers

import (
	"errors"
	"net/http"
	"route-tracking-service/internal/api/dto"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/ports"
	"strings"
)

type GeocodeHandler struct {
	Geocoder ports.Geocoder
}

// Resolve looks a place name up in the gazetteer. Unknown names answer
// 200 with found=false so map clients can fall back on their own.
func (h *GeocodeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "q is required")
		return
	}

	c, err := h.Geocoder.Resolve(q)
	if errors.Is(err, domain.ErrPlaceNotFound) {
		writeJSON(w, r, http.StatusOK, dto.GeocodeResponse{Query: q})
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.GeocodeResponse{Query: q, Found: true, Lat: c.Lat, Lng: c.Lng})
}
