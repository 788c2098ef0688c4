package services

import (
	"context"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/geo"
	"route-tracking-service/internal/ports"
	"slices"
	"strings"
	"sync"
	"time"
)

// kg of CO2 saved per present rider sharing the ride.
const ecoImpactPerRiderKg = 0.2

type SessionConfig struct {
	DebounceWindow     time.Duration
	OracleTimeout      time.Duration
	CompletionRadiusKm float64
	SpeedKmh           float64
	// HeuristicFallback renders degraded results in greedy nearest-neighbor
	// order instead of booking order.
	HeuristicFallback bool
	// ResubscribeBackoff is the first wait before following a position
	// feed again after it ends; it doubles up to maxResubscribeBackoff.
	ResubscribeBackoff time.Duration
	Now                func() time.Time
}

const (
	defaultResubscribeBackoff = 500 * time.Millisecond
	maxResubscribeBackoff     = 30 * time.Second
)

func (c SessionConfig) withDefaults() SessionConfig {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = DefaultOracleTimeout
	}
	if c.CompletionRadiusKm <= 0 {
		c.CompletionRadiusKm = DefaultCompletionRadiusKm
	}
	if c.SpeedKmh <= 0 {
		c.SpeedKmh = geo.DefaultSpeedKmh
	}
	if c.ResubscribeBackoff <= 0 {
		c.ResubscribeBackoff = defaultResubscribeBackoff
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type SessionDeps struct {
	Geocoder  ports.Geocoder
	Optimizer ports.RouteOptimizer
	// Positions is optional; when set the session follows the route's feed.
	Positions ports.PositionSource
	Logger    *slog.Logger
	Config    SessionConfig
}

// Session is the single owner of one route's tracking state. Every
// mutation runs on its goroutine; methods hand work to it and wait.
type Session struct {
	route    domain.Route
	cfg      SessionConfig
	geocoder ports.Geocoder
	logger   *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	cmds      chan func()
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Owned by the run goroutine.
	stops    []domain.Stop
	tracker  *PositionTracker
	rerouter *Rerouter
	result   *domain.OptimizationResult
	order    []string
	updated  time.Time
	subs     map[int]chan domain.TrackingView
	nextSub  int
}

// NewSession starts tracking a route. The initial stop list is optimized
// after the debounce window.
func NewSession(route domain.Route, stops []domain.Stop, deps SessionDeps) (*Session, error) {
	if strings.TrimSpace(route.ID) == "" {
		return nil, fmt.Errorf("new session: route id must be non-empty")
	}
	if deps.Geocoder == nil {
		return nil, fmt.Errorf("new session: geocoder must be non-nil")
	}
	for _, st := range stops {
		if st.RouteID != route.ID {
			return nil, fmt.Errorf("new session: booking %q: %w", st.BookingID, domain.ErrRouteMismatch)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		route:    route,
		cfg:      cfg,
		geocoder: deps.Geocoder,
		logger:   logger.With("route_id", route.ID),
		ctx:      ctx,
		cancel:   cancel,
		cmds:     make(chan func()),
		done:     make(chan struct{}),
		stops:    append([]domain.Stop(nil), stops...),
		tracker:  NewPositionTracker(route.ID, route.DriverID),
		updated:  cfg.Now(),
		subs:     make(map[int]chan domain.TrackingView),
	}
	s.rerouter = newRerouter(ctx, route.ID, deps.Optimizer, cfg.DebounceWindow, cfg.OracleTimeout, s.logger, rerouteHooks{
		post:     s.post,
		snapshot: s.snapshotStops,
		apply:    s.applyResult,
	})

	go s.run()

	if deps.Positions != nil {
		s.follow(deps.Positions)
	}

	return s, nil
}

func (s *Session) RouteID() string { return s.route.ID }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close tears the session down: the debounce timer, any in-flight optimizer
// call, the position subscription and view subscribers. Safe to call twice.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.rerouter.Wait()
		s.wg.Wait()
		s.logger.Info("tracking session closed")
	})
}

func (s *Session) run() {
	defer close(s.done)

	s.rerouter.Trigger()

	for {
		select {
		case <-s.ctx.Done():
			s.rerouter.Stop()
			for id, ch := range s.subs {
				close(ch)
				delete(s.subs, id)
			}
			return
		case fn := <-s.cmds:
			fn()
		}
	}
}

// post queues fn on the session goroutine without waiting for it.
func (s *Session) post(fn func()) bool {
	select {
	case s.cmds <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// do runs fn on the session goroutine and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case s.cmds <- wrapped:
	case <-s.ctx.Done():
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

// follow feeds the route's positions into the session until it closes.
// When the feed ends or cannot be reached it is subscribed to again with
// exponential backoff; direct ingestion keeps working meanwhile.
func (s *Session) follow(src ports.PositionSource) {
	ch, err := src.Subscribe(s.ctx, s.route.ID)
	if err != nil {
		s.logger.Warn("position feed unavailable, relying on direct ingestion", "err", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		backoff := s.cfg.ResubscribeBackoff
		for {
			if ch != nil {
				s.consume(ch)
				if s.ctx.Err() != nil {
					return
				}
				s.logger.Warn("position feed closed, resubscribing", "retry_in", backoff)
			}

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(backoff):
			}

			ch, err = src.Subscribe(s.ctx, s.route.ID)
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				backoff = min(backoff*2, maxResubscribeBackoff)
				s.logger.Warn("resubscribe to position feed failed", "err", err, "retry_in", backoff)
				continue
			}
			s.logger.Info("position feed resubscribed")
			backoff = s.cfg.ResubscribeBackoff
		}
	}()
}

func (s *Session) consume(ch <-chan domain.LivePosition) {
	for p := range ch {
		if _, err := s.IngestPosition(s.ctx, p); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("rejected position from feed", "actor_id", p.ActorID, "err", err)
		}
	}
}

// IngestPosition applies a live position. Older or equal observations for
// the same actor come back as Stale and change nothing.
func (s *Session) IngestPosition(ctx context.Context, pos domain.LivePosition) (IngestResult, error) {
	var (
		res IngestResult
		err error
	)
	if e := s.do(ctx, func() {
		res, err = s.tracker.Ingest(pos)
		if err != nil {
			return
		}
		if res == Stale {
			s.logger.Debug("stale position discarded", "actor_id", pos.ActorID, "observed_at", pos.ObservedAt)
			return
		}
		s.touch()
		s.publish()
	}); e != nil {
		return 0, e
	}
	return res, err
}

// UpdateAttendance records a rider's attendance. A change schedules a
// re-optimization; repeating the current status does nothing.
func (s *Session) UpdateAttendance(ctx context.Context, riderID string, status domain.AttendanceStatus) (bool, error) {
	var (
		changed bool
		err     error
	)
	if e := s.do(ctx, func() {
		found := false
		for i := range s.stops {
			if s.stops[i].RiderID != riderID {
				continue
			}
			found = true
			if s.stops[i].Attendance != status {
				s.stops[i].Attendance = status
				changed = true
			}
		}
		if !found {
			err = fmt.Errorf("update attendance for rider %q: %w", riderID, domain.ErrUnknownStop)
			return
		}
		if changed {
			s.rerouter.Trigger()
			s.touch()
			s.publish()
		}
	}); e != nil {
		return false, e
	}
	return changed, err
}

// AddBooking adds a new stop and schedules a re-optimization. Re-delivery
// of an identical booking is ignored.
func (s *Session) AddBooking(ctx context.Context, stop domain.Stop) error {
	if stop.RouteID != s.route.ID {
		return fmt.Errorf("add booking %q: %w", stop.BookingID, domain.ErrRouteMismatch)
	}
	if strings.TrimSpace(stop.BookingID) == "" || strings.TrimSpace(stop.PickupPlace) == "" {
		return fmt.Errorf("add booking: booking id and pickup place must be non-empty")
	}
	if stop.Attendance == "" {
		stop.Attendance = domain.AttendancePending
	}

	var err error
	if e := s.do(ctx, func() {
		for _, cur := range s.stops {
			if cur.BookingID != stop.BookingID {
				continue
			}
			if cur.RiderID != stop.RiderID || cur.PickupPlace != stop.PickupPlace {
				err = fmt.Errorf("add booking %q: %w", stop.BookingID, domain.ErrDuplicateBooking)
			}
			return
		}
		s.stops = append(s.stops, stop)
		s.rerouter.Trigger()
		s.touch()
		s.publish()
	}); e != nil {
		return e
	}
	return err
}

// RequestOptimization schedules a re-optimization as if attendance changed.
func (s *Session) RequestOptimization(ctx context.Context) error {
	return s.do(ctx, func() { s.rerouter.Trigger() })
}

// View returns the current tracking view.
func (s *Session) View(ctx context.Context) (domain.TrackingView, error) {
	var v domain.TrackingView
	if err := s.do(ctx, func() { v = s.buildView() }); err != nil {
		return domain.TrackingView{}, err
	}
	return v, nil
}

// Subscribe streams views after each accepted position, attendance change
// and applied optimization. Slow readers only see the latest view. The
// channel is closed when the session ends or cancel is called.
func (s *Session) Subscribe(ctx context.Context) (<-chan domain.TrackingView, func(), error) {
	ch := make(chan domain.TrackingView, 1)
	var id int
	if err := s.do(ctx, func() {
		id = s.nextSub
		s.nextSub++
		s.subs[id] = ch
		ch <- s.buildView()
	}); err != nil {
		return nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = s.do(context.Background(), func() {
				if c, ok := s.subs[id]; ok {
					close(c)
					delete(s.subs, id)
				}
			})
		})
	}
	return ch, cancel, nil
}

func (s *Session) touch() { s.updated = s.cfg.Now() }

func (s *Session) publish() {
	if len(s.subs) == 0 {
		return
	}
	v := s.buildView()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// Replace the unread view with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (s *Session) snapshotStops() []domain.Stop {
	return append([]domain.Stop(nil), s.stops...)
}

func (s *Session) applyResult(res domain.OptimizationResult) {
	s.result = &res
	if res.Degraded {
		s.order = nil
	} else {
		s.order = res.OrderedStopNames
	}
	s.logger.Info("route order applied", "stops", len(res.OrderedStopNames), "degraded", res.Degraded)
	s.touch()
	s.publish()
}

// renderedSequence is the route shown to riders: start, present pickups,
// end. Stops are geocoded once in booking order and only rearranged after
// that, so a stop's coordinate does not depend on the applied order.
func (s *Session) renderedSequence() []domain.NamedPlace {
	present := presentPickups(s.stops)
	start, stops, end := ResolveRoute(s.geocoder, s.route.StartPlace, present, s.route.EndPlace)

	if len(s.order) > 0 {
		if order, _ := reconcileOrder(s.order, present); len(order) > 0 {
			stops = arrangePlaces(stops, order)
			return withEndpoints(start, stops, end)
		}
	}
	if s.cfg.HeuristicFallback {
		return SequenceStops(start, stops, end)
	}
	return withEndpoints(start, stops, end)
}

func withEndpoints(start domain.NamedPlace, stops []domain.NamedPlace, end domain.NamedPlace) []domain.NamedPlace {
	out := make([]domain.NamedPlace, 0, len(stops)+2)
	out = append(out, start)
	out = append(out, stops...)
	return append(out, end)
}

func (s *Session) buildView() domain.TrackingView {
	seq := s.renderedSequence()

	v := domain.TrackingView{
		RouteID:      s.route.ID,
		RouteName:    s.route.Name,
		Status:       s.route.Status,
		Sequence:     seq,
		RerouteState: s.rerouter.State().String(),
		UpdatedAt:    s.updated,
	}

	var current *domain.Coordinates
	if vp, ok := s.tracker.Vehicle(); ok {
		v.Vehicle = &vp
		c := vp.Coordinates
		current = &c
	}

	v.RemainingStops = RemainingStops(seq, current, s.cfg.CompletionRadiusKm)
	v.CurrentStop = s.route.EndPlace
	if len(v.RemainingStops) > 0 {
		v.CurrentStop = v.RemainingStops[0].Name
	}

	points := make([]domain.Coordinates, 0, len(seq)+1)
	if current != nil {
		points = append(points, *current)
	}
	for _, p := range seq {
		points = append(points, p.Coordinates)
	}
	for _, p := range geo.DedupeSequential(points) {
		v.Polyline = append(v.Polyline, p.LatLng())
	}

	if current != nil {
		if len(v.RemainingStops) == 0 {
			v.ETAKnown, v.ETAMinutes = true, 0
		} else {
			path := make([]domain.Coordinates, 0, len(v.RemainingStops)+1)
			path = append(path, *current)
			for _, p := range v.RemainingStops {
				path = append(path, p.Coordinates)
			}
			if eta, ok := geo.CumulativeEta(path, s.cfg.SpeedKmh); ok {
				v.ETAKnown, v.ETAMinutes = true, int(eta/time.Minute)
			}
		}
	}

	attendance := make(map[string]domain.AttendanceStatus, len(s.stops))
	for _, st := range s.stops {
		attendance[st.RiderID] = st.Attendance
		switch st.Attendance {
		case domain.AttendancePresent:
			v.PresentCount++
		case domain.AttendanceAbsent:
			v.AbsentCount++
		}
	}
	v.EcoImpactKg = float64(v.PresentCount) * ecoImpactPerRiderKg

	for _, p := range s.tracker.All() {
		m := domain.Marker{
			ActorID:     p.ActorID,
			Coordinates: p.Coordinates,
			IsDriver:    s.tracker.IsDriver(p.ActorID),
			ObservedAt:  p.ObservedAt,
		}
		if !m.IsDriver {
			m.Attendance = attendance[p.ActorID]
		}
		v.Markers = append(v.Markers, m)
	}

	if s.result != nil {
		r := *s.result
		r.OrderedStopNames = slices.Clone(r.OrderedStopNames)
		r.AdvisoryNotes = slices.Clone(r.AdvisoryNotes)
		v.Optimization = &r
	}

	return v
}
