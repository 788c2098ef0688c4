package domain

import "time"

// Outcome of a re-optimization request, produced either by the external
// optimizer or by the local fallback. Never persisted.
type OptimizationResult struct {
	OrderedStopNames         []string
	EstimatedTimeSaved       time.Duration
	EstimatedDistanceSavedKm float64
	AdvisoryNotes            []string
	// Degraded is set when the optimizer could not be used and the
	// present-stop list was returned in booking order.
	Degraded bool
}
