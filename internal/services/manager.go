package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/obs"
	"route-tracking-service/internal/ports"
	"sync"
	"time"
)

// Manager owns the tracking sessions of every open route.
type Manager struct {
	repo      ports.RouteRepository
	deps      SessionDeps
	publisher ports.PositionPublisher
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager wires sessions to the repository. publisher may be nil, in
// which case accepted positions are not fanned out to other instances.
func NewManager(repo ports.RouteRepository, deps SessionDeps, publisher ports.PositionPublisher) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Config = deps.Config.withDefaults()
	return &Manager{
		repo:      repo,
		deps:      deps,
		publisher: publisher,
		logger:    deps.Logger,
		sessions:  make(map[string]*Session),
	}
}

// Open returns the running session for routeID, starting one from the
// repository when needed.
func (m *Manager) Open(ctx context.Context, routeID string) (s *Session, err error) {
	if cur, ok := m.Get(routeID); ok {
		return cur, nil
	}

	defer obs.Time(ctx, m.logger, "manager.Open")(&err)

	route, err := m.repo.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("open route %q: %w", routeID, err)
	}
	stops, err := m.repo.ListStops(ctx, routeID, m.deps.Config.Now())
	if err != nil {
		return nil, fmt.Errorf("open route %q: list stops: %w", routeID, err)
	}

	// Starting a session may wait on the position feed, so it happens
	// outside the lock and other routes stay reachable meanwhile.
	s, err = NewSession(*route, stops, m.deps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if cur, ok := m.sessions[routeID]; ok && !isDone(cur) {
		m.mu.Unlock()
		// Another caller opened the route first; keep theirs.
		s.Close()
		return cur, nil
	}
	m.sessions[routeID] = s
	m.mu.Unlock()

	m.logger.Info("tracking session opened", "route_id", routeID, "stops", len(stops))
	return s, nil
}

// Get returns the running session for routeID without opening one.
func (m *Manager) Get(routeID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[routeID]
	if !ok {
		return nil, false
	}
	if isDone(s) {
		delete(m.sessions, routeID)
		return nil, false
	}
	return s, true
}

// Close stops the session of routeID. It returns domain.ErrRouteNotFound
// when no session is running.
func (m *Manager) Close(routeID string) error {
	m.mu.Lock()
	s, ok := m.sessions[routeID]
	delete(m.sessions, routeID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("close route %q: %w", routeID, domain.ErrRouteNotFound)
	}
	s.Close()
	return nil
}

// CloseAll stops every session; used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
}

// Len reports how many sessions are running.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IngestPosition applies a position to its route's session and, when it
// is accepted, publishes it for other instances.
func (m *Manager) IngestPosition(ctx context.Context, pos domain.LivePosition) (IngestResult, error) {
	s, err := m.Open(ctx, pos.RouteID)
	if err != nil {
		return 0, err
	}

	res, err := s.IngestPosition(ctx, pos)
	if err != nil || res != Accepted || m.publisher == nil {
		return res, err
	}

	if err := m.publisher.Publish(ctx, pos); err != nil {
		m.logger.Warn("publish position failed", "route_id", pos.RouteID, "actor_id", pos.ActorID, "err", err)
	}
	return res, nil
}

// HandleAttendance persists an attendance mark and forwards today's marks
// to the running session, if any.
func (m *Manager) HandleAttendance(ctx context.Context, ev domain.AttendanceEvent) error {
	status, err := domain.ParseAttendanceStatus(string(ev.Status))
	if err != nil {
		return fmt.Errorf("attendance for rider %q: %w", ev.RiderID, err)
	}
	ev.Status = status
	now := m.deps.Config.Now()
	if ev.Date.IsZero() {
		ev.Date = now
	}

	if err := m.repo.MarkAttendance(ctx, ev); err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}

	if !sameDay(ev.Date, now) {
		return nil
	}
	s, ok := m.Get(ev.RouteID)
	if !ok {
		return nil
	}
	if _, err := s.UpdateAttendance(ctx, ev.RiderID, ev.Status); err != nil && !errors.Is(err, domain.ErrSessionClosed) {
		return err
	}
	return nil
}

// AddBooking persists a booking and adds it to the running session, if any.
func (m *Manager) AddBooking(ctx context.Context, stop domain.Stop) error {
	if stop.Attendance == "" {
		stop.Attendance = domain.AttendancePending
	}
	if err := m.repo.AddBooking(ctx, stop); err != nil {
		return fmt.Errorf("add booking: %w", err)
	}

	s, ok := m.Get(stop.RouteID)
	if !ok {
		return nil
	}
	if err := s.AddBooking(ctx, stop); err != nil && !errors.Is(err, domain.ErrSessionClosed) {
		return err
	}
	return nil
}

func isDone(s *Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
