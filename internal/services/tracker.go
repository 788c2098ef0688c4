package services

import (
	"fmt"
	"route-tracking-service/internal/domain"
	"slices"
	"strings"
)

type IngestResult int

const (
	Accepted IngestResult = iota + 1
	Stale
)

func (r IngestResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// PositionTracker keeps the latest position per actor for one route.
// It is not safe for concurrent use; the owning Session serializes access.
type PositionTracker struct {
	routeID  string
	driverID string
	latest   map[string]domain.LivePosition
}

func NewPositionTracker(routeID, driverID string) *PositionTracker {
	return &PositionTracker{
		routeID:  routeID,
		driverID: driverID,
		latest:   make(map[string]domain.LivePosition),
	}
}

// Ingest stores pos unless an equal or newer observation is already held
// for the same actor, in which case the update is Stale and discarded.
func (t *PositionTracker) Ingest(pos domain.LivePosition) (IngestResult, error) {
	if pos.RouteID != t.routeID {
		return 0, fmt.Errorf("ingest position for route %q on %q: %w", pos.RouteID, t.routeID, domain.ErrRouteMismatch)
	}
	if strings.TrimSpace(pos.ActorID) == "" {
		return 0, fmt.Errorf("ingest position: actor id must be non-empty")
	}
	if !pos.Coordinates.Valid() {
		return 0, fmt.Errorf("ingest position for actor %q: %w", pos.ActorID, domain.ErrInvalidCoordinate)
	}
	if pos.ObservedAt.IsZero() {
		return 0, fmt.Errorf("ingest position for actor %q: observedAt must be set", pos.ActorID)
	}

	if cur, ok := t.latest[pos.ActorID]; ok && !pos.ObservedAt.After(cur.ObservedAt) {
		return Stale, nil
	}

	t.latest[pos.ActorID] = pos
	return Accepted, nil
}

// LatestFor returns the retained position of one actor.
func (t *PositionTracker) LatestFor(actorID string) (domain.LivePosition, bool) {
	p, ok := t.latest[actorID]
	return p, ok
}

// Vehicle returns the driver's latest position.
func (t *PositionTracker) Vehicle() (domain.LivePosition, bool) {
	if t.driverID == "" {
		return domain.LivePosition{}, false
	}
	return t.LatestFor(t.driverID)
}

func (t *PositionTracker) IsDriver(actorID string) bool {
	return t.driverID != "" && actorID == t.driverID
}

// All returns every retained position ordered by actor id.
func (t *PositionTracker) All() []domain.LivePosition {
	out := make([]domain.LivePosition, 0, len(t.latest))
	for _, p := range t.latest {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.LivePosition) int {
		return strings.Compare(a.ActorID, b.ActorID)
	})
	return out
}
