package ports

import "route-tracking-service/internal/domain"

// Contract for turning free-text place names into coordinates.
// Implementations are read-only after construction and safe for concurrent use.
type Geocoder interface {
	// Resolve returns domain.ErrPlaceNotFound when the name is unknown.
	Resolve(name string) (domain.Coordinates, error)
	// ResolveWithFallback never fails; unknown names get a placeholder
	// coordinate derived from fallbackIndex.
	ResolveWithFallback(name string, fallbackIndex int) domain.Coordinates
	// ResolveMany resolves each name using its position as the fallback index.
	ResolveMany(names []string) []domain.Coordinates
}
