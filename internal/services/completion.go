package services

import (
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/geo"
)

// DefaultCompletionRadiusKm is the proximity under which a stop counts as reached.
const DefaultCompletionRadiusKm = 0.35

// RemainingStops returns the stops of sequence not yet reached.
//
// The first element is the route start and is always treated as passed.
// With no known position nothing else is considered completed. Otherwise a
// stop is dropped when the position is within radiusKm of it. This is a
// proximity test only: passing close to a stop without halting also
// drops it.
func RemainingStops(sequence []domain.NamedPlace, current *domain.Coordinates, radiusKm float64) []domain.NamedPlace {
	if len(sequence) <= 1 {
		return []domain.NamedPlace{}
	}

	candidates := sequence[1:]
	if current == nil {
		return append([]domain.NamedPlace(nil), candidates...)
	}

	if radiusKm <= 0 {
		radiusKm = DefaultCompletionRadiusKm
	}

	remaining := make([]domain.NamedPlace, 0, len(candidates))
	for _, s := range candidates {
		if geo.DistanceKm(*current, s.Coordinates) > radiusKm {
			remaining = append(remaining, s)
		}
	}
	return remaining
}
