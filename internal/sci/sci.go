// v2
// internal/sci/sci.go
// Package sci computes Software Carbon Intensity scores: operational plus
// amortized embodied emissions, normalized by an activity-appropriate
// functional unit and graded A-E.
package sci

import (
	"math"

	"github.com/nksrentas/ecotrace/internal/activity"
)

// Hardware amortization constants. Embodied budgets are manufacture-phase
// carbon per unit of hardware, written off over the lifespan at the assumed
// utilization.
const (
	serverEmbodiedKg   = 1000.0 // one 16-vCPU host
	hostVCPUs          = 16.0
	storageEmbodiedKg  = 100.0 // per TB of managed storage
	networkEmbodiedKg  = 250.0 // per TB of switching capacity
	endpointEmbodiedKg = 300.0 // developer workstation share

	lifespanHours = 4 * 365 * 24 // 4-year hardware life
	utilization   = 0.5
)

// overheadMultipliers adds software/infrastructure overhead on top of the
// direct activity emissions, keyed by activity type.
var overheadMultipliers = map[activity.Type]float64{
	activity.CloudCompute: 1.05,
	activity.DataTransfer: 1.03,
	activity.Storage:      1.02,
	activity.Electricity:  1.00,
	activity.Transport:    1.00,
	activity.Commit:       1.10,
	activity.Deployment:   1.08,
}

// ratingBounds holds the A/B/C/D upper bounds (kg CO2e per functional unit)
// per activity type. Compute is held to stricter thresholds than storage,
// reflecting differing achievable efficiency. Values at or above the D bound
// rate E.
var ratingBounds = map[activity.Type][4]float64{
	activity.CloudCompute: {0.001, 0.005, 0.02, 0.05},
	activity.DataTransfer: {1e-6, 5e-6, 2e-5, 1e-4},
	activity.Storage:      {1e-6, 5e-6, 2e-5, 1e-4},
}

// defaultBounds applies to per-operation functional units.
var defaultBounds = [4]float64{0.005, 0.02, 0.05, 0.15}

// Components splits the total into its operational and embodied parts.
type Components struct {
	Operational float64 `json:"operational"` // kg CO2e
	Embodied    float64 `json:"embodied"`    // kg CO2e
}

// Calculation is a pure, recomputable SCI derivation for one activity.
type Calculation struct {
	CarbonIntensity     float64    `json:"carbonIntensity"` // gCO2e/kWh used
	EnergyKWh           float64    `json:"energyConsumption"`
	EmbodiedKg          float64    `json:"embodiedEmissions"`
	FunctionalUnit      string     `json:"functionalUnit"`
	FunctionalUnitCount float64    `json:"functionalUnitCount"`
	Value               float64    `json:"sciValue"` // kg CO2e per functional unit
	Rating              string     `json:"sciRating"`
	Components          Components `json:"components"`
	ActivityType        activity.Type `json:"activityType"`
}

// Calculate derives the SCI score for an activity given its energy figure and
// the fused carbon intensity. The functional-unit choice is part of the
// methodology and is recorded alongside the score.
func Calculate(rec activity.Record, energyKWh, intensityGPerKWh float64) Calculation {
	operational := energyKWh * intensityGPerKWh / 1000 // kg
	embodied := embodiedFor(rec)
	overhead := overheadMultipliers[rec.Type]
	if overhead == 0 {
		overhead = 1.0
	}
	unit, count := functionalUnit(rec)
	total := (operational + embodied) * overhead
	value := total
	if count > 0 {
		value = total / count
	}
	return Calculation{
		CarbonIntensity:     intensityGPerKWh,
		EnergyKWh:           energyKWh,
		EmbodiedKg:          round9(embodied),
		FunctionalUnit:      unit,
		FunctionalUnitCount: round9(count),
		Value:               round9(value),
		Rating:              rating(rec.Type, value),
		Components:          Components{Operational: round9(operational * overhead), Embodied: round9(embodied * overhead)},
		ActivityType:        rec.Type,
	}
}

// embodiedFor amortizes the per-unit hardware budget over the lifespan and
// utilization, scaled by the activity magnitude and by the fraction of a
// lifespan-hour actually consumed (min(1, durationHours)).
func embodiedFor(rec activity.Record) float64 {
	perHour := func(budgetKg float64) float64 { return budgetKg / (lifespanHours * utilization) }
	switch rec.Type {
	case activity.CloudCompute:
		m := rec.CloudCompute
		share := m.VCPUCount / hostVCPUs
		return perHour(serverEmbodiedKg) * share * math.Min(1, m.DurationSeconds/3600)
	case activity.Storage:
		m := rec.Storage
		share := m.SizeGB / 1000 // fraction of a managed TB
		return perHour(storageEmbodiedKg) * share * math.Min(1, m.DurationHours)
	case activity.DataTransfer:
		gb := rec.DataTransfer.Bytes / 1e9
		share := gb / 1000 // fraction of a TB of switching capacity
		return perHour(networkEmbodiedKg) * share
	case activity.Commit:
		// Workstation share for the editing session behind one commit.
		return perHour(endpointEmbodiedKg) * 0.25
	case activity.Deployment:
		m := rec.Deployment
		return perHour(serverEmbodiedKg) * 0.1 * math.Min(1, m.DurationSeconds/3600)
	default:
		return 0
	}
}

// functionalUnit selects the normalization denominator per activity type.
func functionalUnit(rec activity.Record) (string, float64) {
	switch rec.Type {
	case activity.CloudCompute:
		return "vCPU-hour", rec.CloudCompute.VCPUHours()
	case activity.DataTransfer:
		return "MB", rec.DataTransfer.Bytes / 1e6
	case activity.Storage:
		return "GB-hour", rec.Storage.SizeGB * rec.Storage.DurationHours
	default:
		return "operation", 1
	}
}

func rating(t activity.Type, value float64) string {
	bounds, ok := ratingBounds[t]
	if !ok {
		bounds = defaultBounds
	}
	switch {
	case value < bounds[0]:
		return "A"
	case value < bounds[1]:
		return "B"
	case value < bounds[2]:
		return "C"
	case value < bounds[3]:
		return "D"
	default:
		return "E"
	}
}

func round9(v float64) float64 { return math.Round(v*1e9) / 1e9 }
