package geocode

import (
	"route-tracking-service/internal/domain"
	"strings"
)

// Options customizes a Gazetteer. Zero values select the built-in data.
type Options struct {
	// Extra places appended after the built-in table, in the given order.
	Extra []domain.NamedPlace
	// Fillers are whole words removed from queries, e.g. a trailing city name.
	Fillers []string
	// Fallback overrides the placeholder ring used for unresolved names.
	Fallback []domain.Coordinates
}

// Gazetteer resolves place names against a static, ordered lookup table.
// It is immutable after construction and safe for concurrent use without locking.
type Gazetteer struct {
	places   []place
	exact    map[string]domain.Coordinates
	fillers  map[string]struct{}
	fallback []domain.Coordinates
}

func NewGazetteer(opts Options) *Gazetteer {
	fillers := opts.Fillers
	if fillers == nil {
		fillers = []string{"muscat"}
	}

	g := &Gazetteer{
		exact:    make(map[string]domain.Coordinates, len(knownPlaces)+len(opts.Extra)),
		fillers:  make(map[string]struct{}, len(fillers)),
		fallback: fallbackRing,
	}
	if len(opts.Fallback) > 0 {
		g.fallback = append([]domain.Coordinates(nil), opts.Fallback...)
	}
	for _, f := range fillers {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			g.fillers[f] = struct{}{}
		}
	}

	add := func(key string, c domain.Coordinates) {
		key = strings.Join(strings.Fields(strings.ToLower(key)), " ")
		if key == "" {
			return
		}
		// First definition wins so extra rows cannot reorder the table.
		if _, ok := g.exact[key]; ok {
			return
		}
		g.exact[key] = c
		g.places = append(g.places, place{key: key, coord: c})
	}

	for _, p := range knownPlaces {
		add(p.key, p.coord)
	}
	for _, p := range opts.Extra {
		if !p.Coordinates.Valid() {
			continue
		}
		add(p.Name, p.Coordinates)
	}

	return g
}

// normalize lowercases, strips filler words and collapses whitespace.
func (g *Gazetteer) normalize(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	kept := fields[:0]
	for _, f := range fields {
		if _, ok := g.fillers[f]; ok {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// Resolve looks the name up exactly, then by substring containment in
// either direction, in table order.
func (g *Gazetteer) Resolve(name string) (domain.Coordinates, error) {
	norm := g.normalize(name)
	if norm == "" {
		return domain.Coordinates{}, domain.ErrPlaceNotFound
	}

	if c, ok := g.exact[norm]; ok {
		return c, nil
	}

	for _, p := range g.places {
		if strings.Contains(norm, p.key) || strings.Contains(p.key, norm) {
			return p.coord, nil
		}
	}

	return domain.Coordinates{}, domain.ErrPlaceNotFound
}

// Fallback returns the placeholder coordinate for a fallback index.
// Callers must treat it as approximate.
func (g *Gazetteer) Fallback(index int) domain.Coordinates {
	n := len(g.fallback)
	i := ((index % n) + n) % n
	return g.fallback[i]
}

func (g *Gazetteer) ResolveWithFallback(name string, fallbackIndex int) domain.Coordinates {
	if c, err := g.Resolve(name); err == nil {
		return c
	}
	return g.Fallback(fallbackIndex)
}

func (g *Gazetteer) ResolveMany(names []string) []domain.Coordinates {
	out := make([]domain.Coordinates, len(names))
	for i, n := range names {
		out[i] = g.ResolveWithFallback(n, i)
	}
	return out
}

// Len reports the number of distinct keys in the table.
func (g *Gazetteer) Len() int { return len(g.places) }
