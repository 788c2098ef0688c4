package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"route-tracking-service/internal/adapters/optimizer"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/obs"
	"route-tracking-service/internal/ports"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeOptimizer counts calls and answers with respond, or with a fixed
// response when respond is nil.
type fakeOptimizer struct {
	mu      sync.Mutex
	calls   int
	reqs    []ports.OptimizationRequest
	resp    *ports.OptimizationResponse
	err     error
	respond func(ctx context.Context, call int, req ports.OptimizationRequest) (*ports.OptimizationResponse, error)
}

func (f *fakeOptimizer) Optimize(ctx context.Context, req ports.OptimizationRequest) (*ports.OptimizationResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.reqs = append(f.reqs, req)
	respond, resp, err := f.respond, f.resp, f.err
	f.mu.Unlock()

	if respond != nil {
		return respond(ctx, call, req)
	}
	return resp, err
}

func (f *fakeOptimizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeOptimizer) LastRequest() ports.OptimizationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return ports.OptimizationRequest{}
	}
	return f.reqs[len(f.reqs)-1]
}

func stop(booking, rider, pickup string, att domain.AttendanceStatus) domain.Stop {
	return domain.Stop{
		BookingID:   booking,
		RouteID:     "r1",
		RiderID:     rider,
		PickupPlace: pickup,
		Attendance:  att,
	}
}

func seebStops() []domain.Stop {
	return []domain.Stop{
		stop("b1", "u1", "Seeb", domain.AttendancePresent),
		stop("b2", "u2", "Ruwi", domain.AttendanceAbsent),
		stop("b3", "u3", "Qurum", domain.AttendancePending),
	}
}

func testRerouter(opt ports.RouteOptimizer) *Rerouter {
	return newRerouter(context.Background(), "r1", opt, 0, 0, obs.Discard(), rerouteHooks{})
}

func TestRerouterOptimizeUsesOptimizerOrder(t *testing.T) {
	opt := &fakeOptimizer{resp: &ports.OptimizationResponse{
		OptimizedRoute:  []string{"Qurum", "Seeb"},
		TimeSaved:       "12 minutes",
		DistanceSaved:   "3.5 km",
		Recommendations: []string{"Leave five minutes early", " "},
	}}

	res := testRerouter(opt).Optimize(context.Background(), seebStops())

	if res.Degraded {
		t.Fatalf("result should not be degraded: %+v", res)
	}
	if want := []string{"Qurum", "Seeb"}; !reflect.DeepEqual(res.OrderedStopNames, want) {
		t.Fatalf("order = %v, want %v", res.OrderedStopNames, want)
	}
	if res.EstimatedTimeSaved != 12*time.Minute {
		t.Fatalf("time saved = %v, want 12m", res.EstimatedTimeSaved)
	}
	if res.EstimatedDistanceSavedKm != 3.5 {
		t.Fatalf("distance saved = %v, want 3.5", res.EstimatedDistanceSavedKm)
	}
	if want := []string{"Leave five minutes early"}; !reflect.DeepEqual(res.AdvisoryNotes, want) {
		t.Fatalf("notes = %v, want %v", res.AdvisoryNotes, want)
	}

	req := opt.LastRequest()
	if req.RouteID != "r1" || len(req.Attendance) != 3 {
		t.Fatalf("request = %+v", req)
	}
	statuses := []string{req.Attendance[0].Status, req.Attendance[1].Status, req.Attendance[2].Status}
	if want := []string{"present", "absent", "present"}; !reflect.DeepEqual(statuses, want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
}

func TestRerouterOptimizeFallsBack(t *testing.T) {
	tests := []struct {
		name string
		opt  ports.RouteOptimizer
	}{
		{name: "no optimizer", opt: nil},
		{name: "optimizer error", opt: &fakeOptimizer{err: errors.New("status 500")}},
		{name: "empty order", opt: &fakeOptimizer{resp: &ports.OptimizationResponse{}}},
		{name: "only unknown stops", opt: &fakeOptimizer{resp: &ports.OptimizationResponse{
			OptimizedRoute: []string{"Ruwi", "Atlantis"},
		}}},
		{name: "timeout", opt: &fakeOptimizer{respond: func(ctx context.Context, _ int, _ ports.OptimizationRequest) (*ports.OptimizationResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			res := testRerouter(tt.opt).Optimize(ctx, seebStops())

			if !res.Degraded {
				t.Fatalf("expected degraded result, got %+v", res)
			}
			if want := []string{"Seeb", "Qurum"}; !reflect.DeepEqual(res.OrderedStopNames, want) {
				t.Fatalf("order = %v, want %v", res.OrderedStopNames, want)
			}
			if len(res.AdvisoryNotes) == 0 {
				t.Fatalf("expected an advisory note")
			}
			if res.EstimatedTimeSaved != 0 || res.EstimatedDistanceSavedKm != 0 {
				t.Fatalf("fallback should not claim savings: %+v", res)
			}
		})
	}
}

func TestRerouterOptimizeFallsBackOnHTTPFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
		}},
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{bad json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			opt, err := optimizer.NewHTTPOptimizer(srv.URL, optimizer.Options{
				MaxAttempts: 2,
				Backoff:     time.Millisecond,
				Logger:      obs.Discard(),
			})
			if err != nil {
				t.Fatalf("NewHTTPOptimizer: %v", err)
			}

			res := testRerouter(opt).Optimize(context.Background(), seebStops())

			if !res.Degraded {
				t.Fatalf("expected degraded result, got %+v", res)
			}
			if want := []string{"Seeb", "Qurum"}; !reflect.DeepEqual(res.OrderedStopNames, want) {
				t.Fatalf("order = %v, want %v", res.OrderedStopNames, want)
			}
			if len(res.AdvisoryNotes) == 0 {
				t.Fatalf("expected an advisory note")
			}
		})
	}
}

func TestRerouterOptimizeAllAbsent(t *testing.T) {
	opt := &fakeOptimizer{resp: &ports.OptimizationResponse{OptimizedRoute: []string{"Seeb"}}}
	stops := []domain.Stop{stop("b1", "u1", "Seeb", domain.AttendanceAbsent)}

	res := testRerouter(opt).Optimize(context.Background(), stops)

	if opt.Calls() != 1 {
		t.Fatalf("calls = %d, want 1", opt.Calls())
	}
	if len(res.OrderedStopNames) != 0 {
		t.Fatalf("order = %v, want empty", res.OrderedStopNames)
	}
}

func TestBuildOptimizationRequestNullPickup(t *testing.T) {
	req := buildOptimizationRequest("r1", []domain.Stop{
		stop("b1", "u1", "  ", domain.AttendancePending),
	})

	if req.Attendance[0].PickupLocation != nil {
		t.Fatalf("pickup = %q, want nil", *req.Attendance[0].PickupLocation)
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"pickup_location":null`) {
		t.Fatalf("wire form %s lacks null pickup_location", raw)
	}
	if !strings.Contains(string(raw), `"routeId":"r1"`) || !strings.Contains(string(raw), `"student_id":"u1"`) {
		t.Fatalf("unexpected wire form %s", raw)
	}
}

func TestReconcileOrder(t *testing.T) {
	tests := []struct {
		name      string
		proposed  []string
		present   []string
		want      []string
		wantNotes int
	}{
		{
			name:     "exact permutation",
			proposed: []string{"Qurum", "Seeb"},
			present:  []string{"Seeb", "Qurum"},
			want:     []string{"Qurum", "Seeb"},
		},
		{
			name:     "case and spacing",
			proposed: []string{" qurum", "SEEB "},
			present:  []string{"Seeb", "Qurum"},
			want:     []string{"Qurum", "Seeb"},
		},
		{
			name:      "drops unknown and appends missing",
			proposed:  []string{"Ruwi", "Qurum"},
			present:   []string{"Seeb", "Qurum", "Ghubra"},
			want:      []string{"Qurum", "Seeb", "Ghubra"},
			wantNotes: 2,
		},
		{
			name:     "duplicate pickups consumed once each",
			proposed: []string{"Seeb", "Seeb", "Seeb"},
			present:  []string{"Seeb", "Seeb"},
			want:     []string{"Seeb", "Seeb"},
			// The third Seeb is dropped.
			wantNotes: 1,
		},
		{
			name:      "nothing usable",
			proposed:  []string{"Atlantis"},
			present:   []string{"Seeb"},
			want:      []string{},
			wantNotes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notes := reconcileOrder(tt.proposed, tt.present)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
			if len(notes) != tt.wantNotes {
				t.Fatalf("notes = %v, want %d", notes, tt.wantNotes)
			}
		})
	}
}

func TestParseSavings(t *testing.T) {
	times := map[string]time.Duration{
		"12 minutes": 12 * time.Minute,
		"1.5 hours":  90 * time.Minute,
		"30 seconds": 30 * time.Second,
		"7":          7 * time.Minute,
		"":           0,
		"a while":    0,
		"-3 minutes": 0,
	}
	for in, want := range times {
		if got := parseTimeSaved(in); got != want {
			t.Errorf("parseTimeSaved(%q) = %v, want %v", in, got, want)
		}
	}

	distances := map[string]float64{
		"3.5 km":     3.5,
		"800 m":      0.8,
		"2 meters":   0.002,
		"4":          4,
		"unknown":    0,
		"-1 km":      0,
		"1.2km less": 1.2,
	}
	for in, want := range distances {
		if got := parseDistanceSavedKm(in); got != want {
			t.Errorf("parseDistanceSavedKm(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRerouteStateString(t *testing.T) {
	for state, want := range map[RerouteState]string{
		StateIdle:       "idle",
		StateScheduled:  "scheduled",
		StateRequesting: "requesting",
		StateApplied:    "applied",
		RerouteState(9): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
