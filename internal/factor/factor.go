// v1
// internal/factor/factor.go
package factor

import "time"

// FreshnessClass buckets how often a source refreshes its data.
type FreshnessClass string

const (
	FreshRealtime  FreshnessClass = "realtime"
	FreshHourly    FreshnessClass = "hourly"
	FreshDaily     FreshnessClass = "daily"
	FreshQuarterly FreshnessClass = "quarterly"
	FreshAnnual    FreshnessClass = "annual"
)

// EmissionFactor converts a physical quantity into grams of CO2e.
// Factors are never mutated in place; a superseding factor carries a new
// ValidFrom. A zero ValidUntil means the validity window is open-ended.
type EmissionFactor struct {
	ID          string    `json:"id"`
	Value       float64   `json:"value"` // gCO2e per Unit
	Unit        string    `json:"unit"`  // e.g. "gCO2e/kWh"
	Source      string    `json:"source"`
	Region      string    `json:"region,omitempty"`
	ValidFrom   time.Time `json:"validFrom"`
	ValidUntil  time.Time `json:"validUntil,omitempty"`
	Uncertainty float64   `json:"uncertainty,omitempty"` // relative, 0 when unknown
}

// ValidAt reports whether the factor's validity window covers t.
func (f EmissionFactor) ValidAt(t time.Time) bool {
	if t.Before(f.ValidFrom) {
		return false
	}
	if !f.ValidUntil.IsZero() && t.After(f.ValidUntil) {
		return false
	}
	return true
}

// SourceDescriptor is static configuration describing an adapter's trust
// weight. Reliability is in [0,1]; Coverage lists served zones, empty
// meaning global coverage.
type SourceDescriptor struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"` // grid_average | live_grid | cloud_provider
	Freshness   FreshnessClass `json:"freshness"`
	Reliability float64        `json:"reliability"`
	Coverage    []string       `json:"coverage,omitempty"`
}

// Covers reports whether the descriptor's coverage includes zone.
func (d SourceDescriptor) Covers(zone string) bool {
	if len(d.Coverage) == 0 {
		return true
	}
	for _, z := range d.Coverage {
		if z == zone {
			return true
		}
	}
	return false
}
