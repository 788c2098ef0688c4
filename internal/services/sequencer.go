package services

import (
	"math"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/geo"
)

// Distances closer than this are treated as ties.
const tieToleranceKm = 1e-9

// SequenceStops orders stops between start and end using a greedy
// nearest-neighbor walk over haversine distance.
//
// The result is locally greedy and deterministic, not a minimal tour:
// from the current point the closest unvisited stop is taken next, and
// equidistant stops are taken in input order. O(n²) in the stop count,
// which is fine for the few dozen stops a route carries.
func SequenceStops(start domain.NamedPlace, stops []domain.NamedPlace, end domain.NamedPlace) []domain.NamedPlace {
	out := make([]domain.NamedPlace, 0, len(stops)+2)
	out = append(out, start)

	visited := make([]bool, len(stops))
	current := start.Coordinates

	for range stops {
		best := -1
		bestDist := math.Inf(1)

		// Select the next stop by minimum distance (greedy step).
		for i, s := range stops {
			if visited[i] {
				continue
			}
			d := geo.DistanceKm(current, s.Coordinates)
			// Strictly closer by more than the tolerance; earlier index wins ties.
			if best == -1 || d < bestDist-tieToleranceKm {
				best = i
				bestDist = d
			}
		}

		visited[best] = true
		out = append(out, stops[best])
		current = stops[best].Coordinates
	}

	return append(out, end)
}

// ResolveRoute geocodes the route endpoints and the stop names in one pass.
// Unresolved names take their position in [start, names..., end] as the
// fallback index, so a stop keeps the same coordinate however it is later
// ordered.
func ResolveRoute(g placeResolver, startPlace string, names []string, endPlace string) (domain.NamedPlace, []domain.NamedPlace, domain.NamedPlace) {
	places := resolvePlaces(g, append(append([]string{startPlace}, names...), endPlace))
	return places[0], places[1 : len(places)-1], places[len(places)-1]
}

// arrangePlaces returns the resolved stops in the given name order. Each
// name consumes the next unused stop with that name; names without a stop
// are skipped.
func arrangePlaces(stops []domain.NamedPlace, order []string) []domain.NamedPlace {
	byName := make(map[string][]domain.NamedPlace, len(stops))
	for _, p := range stops {
		byName[p.Name] = append(byName[p.Name], p)
	}

	out := make([]domain.NamedPlace, 0, len(order))
	for _, name := range order {
		q := byName[name]
		if len(q) == 0 {
			continue
		}
		out = append(out, q[0])
		byName[name] = q[1:]
	}
	return out
}

type placeResolver interface {
	ResolveMany(names []string) []domain.Coordinates
}

// resolvePlaces pairs names with coordinates, using positions as fallback indexes.
func resolvePlaces(g placeResolver, names []string) []domain.NamedPlace {
	coords := g.ResolveMany(names)
	out := make([]domain.NamedPlace, len(names))
	for i, n := range names {
		out[i] = domain.NamedPlace{Name: n, Coordinates: coords[i]}
	}
	return out
}
