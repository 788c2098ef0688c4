package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/obs"
	"route-tracking-service/internal/ports"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	DefaultDebounceWindow = 800 * time.Millisecond
	DefaultOracleTimeout  = 8 * time.Second
)

var errEmptyOrder = errors.New("optimizer returned no usable stops")

type RerouteState int

const (
	StateIdle RerouteState = iota
	StateScheduled
	StateRequesting
	StateApplied
)

func (s RerouteState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRequesting:
		return "requesting"
	case StateApplied:
		return "applied"
	}
	return "unknown"
}

// rerouteHooks connect a Rerouter to the goroutine that owns it.
type rerouteHooks struct {
	// post runs fn on the owner goroutine; false once the owner is gone.
	post func(fn func()) bool
	// snapshot returns the stops at the moment the debounce timer fires.
	snapshot func() []domain.Stop
	// apply receives every finished result, optimizer or fallback.
	apply func(res domain.OptimizationResult)
}

// Rerouter is the attendance-aware re-optimization state machine of one route:
//
//	Idle|Applied --Trigger--> Scheduled --timer--> Requesting --result--> Applied
//
// A Trigger while Scheduled restarts the debounce timer; a Trigger while
// Requesting abandons the in-flight call. Trigger, State and Stop must be
// called from the owner goroutine; timer and optimizer completions come back
// through hooks.post.
type Rerouter struct {
	routeID   string
	optimizer ports.RouteOptimizer
	window    time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	parent    context.Context
	hooks     rerouteHooks

	state  RerouteState
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRerouter(
	ctx context.Context,
	routeID string,
	optimizer ports.RouteOptimizer,
	window time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
	hooks rerouteHooks,
) *Rerouter {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &Rerouter{
		routeID:   routeID,
		optimizer: optimizer,
		window:    window,
		timeout:   timeout,
		logger:    logger,
		parent:    ctx,
		hooks:     hooks,
		state:     StateIdle,
	}
}

func (r *Rerouter) State() RerouteState { return r.state }

// Trigger schedules a re-optimization after the debounce window, replacing
// any pending timer or in-flight request.
func (r *Rerouter) Trigger() {
	r.stopPending()

	r.gen++
	gen := r.gen
	r.state = StateScheduled
	r.timer = time.AfterFunc(r.window, func() {
		r.hooks.post(func() { r.fire(gen) })
	})
}

// Stop cancels the pending timer and any in-flight request.
func (r *Rerouter) Stop() {
	r.stopPending()
	r.gen++
}

// Wait blocks until in-flight optimizer goroutines have returned.
func (r *Rerouter) Wait() { r.wg.Wait() }

func (r *Rerouter) stopPending() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Rerouter) fire(gen uint64) {
	if gen != r.gen || r.state != StateScheduled {
		return
	}
	r.timer = nil
	r.state = StateRequesting

	stops := r.hooks.snapshot()
	if len(stops) == 0 {
		r.finish(gen, domain.OptimizationResult{
			OrderedStopNames: []string{},
			AdvisoryNotes:    []string{"route has no stops to optimize"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.parent, r.timeout)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		res := r.Optimize(ctx, stops)
		r.hooks.post(func() { r.finish(gen, res) })
	}()
}

func (r *Rerouter) finish(gen uint64, res domain.OptimizationResult) {
	if gen != r.gen {
		return
	}
	r.cancel = nil
	r.state = StateApplied
	r.hooks.apply(res)
}

// Optimize asks the optimizer for a stop order and validates the answer.
// It never fails: optimizer errors, timeouts and unusable answers yield the
// present stops in booking order with an advisory note.
func (r *Rerouter) Optimize(ctx context.Context, stops []domain.Stop) domain.OptimizationResult {
	present := presentPickups(stops)

	if r.optimizer == nil {
		return fallbackResult(present, "route optimizer not configured; using booking order")
	}

	var err error
	defer obs.Time(ctx, r.logger, "reroute.Optimize")(&err)

	resp, err := r.optimizer.Optimize(ctx, buildOptimizationRequest(r.routeID, stops))
	if err != nil {
		r.logger.Warn("route optimizer failed, using fallback order", "route_id", r.routeID, "err", err)
		return fallbackResult(present, "route optimizer unavailable; using booking order")
	}

	order, notes := reconcileOrder(resp.OptimizedRoute, present)
	if len(order) == 0 && len(present) > 0 {
		err = errEmptyOrder
		r.logger.Warn("route optimizer returned no usable stops, using fallback order", "route_id", r.routeID)
		return fallbackResult(present, "route optimizer returned no usable stops; using booking order")
	}

	res := domain.OptimizationResult{
		OrderedStopNames:         order,
		EstimatedTimeSaved:       parseTimeSaved(resp.TimeSaved),
		EstimatedDistanceSavedKm: parseDistanceSavedKm(resp.DistanceSaved),
	}
	res.AdvisoryNotes = append(res.AdvisoryNotes, notes...)
	for _, rec := range resp.Recommendations {
		if rec = strings.TrimSpace(rec); rec != "" {
			res.AdvisoryNotes = append(res.AdvisoryNotes, rec)
		}
	}
	return res
}

func buildOptimizationRequest(routeID string, stops []domain.Stop) ports.OptimizationRequest {
	entries := make([]ports.AttendanceEntry, 0, len(stops))
	for _, s := range stops {
		status := string(domain.AttendancePresent)
		if !s.Present() {
			status = string(domain.AttendanceAbsent)
		}

		var pickup *string
		if p := strings.TrimSpace(s.PickupPlace); p != "" {
			pickup = &p
		}

		entries = append(entries, ports.AttendanceEntry{
			ID:             s.BookingID,
			StudentID:      s.RiderID,
			Status:         status,
			PickupLocation: pickup,
		})
	}
	return ports.OptimizationRequest{RouteID: routeID, Attendance: entries}
}

// presentPickups lists pickup places of non-absent stops in booking order.
func presentPickups(stops []domain.Stop) []string {
	out := make([]string, 0, len(stops))
	for _, s := range stops {
		if !s.Present() {
			continue
		}
		if p := strings.TrimSpace(s.PickupPlace); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fallbackResult(present []string, note string) domain.OptimizationResult {
	return domain.OptimizationResult{
		OrderedStopNames: append([]string{}, present...),
		AdvisoryNotes:    []string{note},
		Degraded:         true,
	}
}

func stopKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// reconcileOrder maps optimizer names onto the present pickups. Names that
// are not present pickups are dropped; present pickups the optimizer left
// out are appended in booking order.
func reconcileOrder(proposed []string, present []string) ([]string, []string) {
	pending := make(map[string][]string, len(present))
	for _, p := range present {
		k := stopKey(p)
		pending[k] = append(pending[k], p)
	}

	order := make([]string, 0, len(present))
	var dropped []string
	for _, name := range proposed {
		k := stopKey(name)
		q := pending[k]
		if len(q) == 0 {
			dropped = append(dropped, name)
			continue
		}
		order = append(order, q[0])
		pending[k] = q[1:]
	}

	var notes []string
	if len(dropped) > 0 {
		notes = append(notes, fmt.Sprintf("ignored %d suggested stops not scheduled for pickup: %s", len(dropped), strings.Join(dropped, ", ")))
	}

	if len(order) == 0 {
		return order, notes
	}

	appended := 0
	for _, p := range present {
		k := stopKey(p)
		if q := pending[k]; len(q) > 0 {
			order = append(order, q[0])
			pending[k] = q[1:]
			appended++
		}
	}
	if appended > 0 {
		notes = append(notes, fmt.Sprintf("appended %d stops the optimizer left out", appended))
	}
	return order, notes
}

// leadingNumber parses the number at the start of s ("12 minutes" -> 12, "minutes").
func leadingNumber(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-'
	})
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, "", false
	}
	return n, strings.ToLower(strings.TrimSpace(s[end:])), true
}

func parseTimeSaved(s string) time.Duration {
	n, unit, ok := leadingNumber(s)
	if !ok || n < 0 {
		return 0
	}
	switch {
	case strings.HasPrefix(unit, "h"):
		return time.Duration(n * float64(time.Hour))
	case strings.HasPrefix(unit, "s"):
		return time.Duration(n * float64(time.Second))
	}
	return time.Duration(n * float64(time.Minute))
}

func parseDistanceSavedKm(s string) float64 {
	n, unit, ok := leadingNumber(s)
	if !ok || n < 0 {
		return 0
	}
	if unit == "m" || strings.HasPrefix(unit, "meter") || strings.HasPrefix(unit, "metre") {
		return n / 1000
	}
	return n
}
