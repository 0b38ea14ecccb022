// v1
// internal/sci/compliance.go
package sci

import "github.com/nksrentas/ecotrace/internal/factor"

// Issue is one compliance finding with an actionable recommendation.
type Issue struct {
	Flag           string `json:"flag"`
	Penalty        int    `json:"penalty"`
	Recommendation string `json:"recommendation"`
}

// ComplianceReport is a pure rule check over an existing calculation; it
// never recomputes the score.
type ComplianceReport struct {
	Score     int     `json:"score"` // bounded [0,100]
	Compliant bool    `json:"compliant"`
	Issues    []Issue `json:"issues,omitempty"`
}

const compliantFloor = 60

// ValidateCompliance flags deviations from the SCI specification's
// preferred inputs. Each flag lowers the bounded score and carries a
// recommendation string.
func ValidateCompliance(c Calculation, freshness factor.FreshnessClass, marginalIntensity bool) ComplianceReport {
	score := 100
	var issues []Issue
	add := func(flag string, penalty int, rec string) {
		issues = append(issues, Issue{Flag: flag, Penalty: penalty, Recommendation: rec})
		score -= penalty
	}

	if !marginalIntensity {
		add("non_marginal_intensity", 15,
			"use marginal grid intensity instead of average intensity where a marginal signal is available")
	}
	if freshness != factor.FreshRealtime {
		add("non_realtime_resolution", 20,
			"source real-time grid intensity so the score reflects the actual generation mix at execution time")
	}
	if c.EmbodiedKg == 0 {
		add("embodied_excluded", 25,
			"include amortized embodied emissions; operational-only scores understate the hardware footprint")
	}
	if c.Rating == "D" || c.Rating == "E" {
		add("poor_rating", 20,
			"reduce carbon per functional unit: schedule work in low-intensity windows or consolidate onto fewer hosts")
	}

	if score < 0 {
		score = 0
	}
	return ComplianceReport{Score: score, Compliant: score >= compliantFloor, Issues: issues}
}
