// v1
// internal/engine/result.go
package engine

import (
	"math"
	"time"

	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/audit"
	"github.com/nksrentas/ecotrace/internal/crossval"
	"github.com/nksrentas/ecotrace/internal/factor"
	"github.com/nksrentas/ecotrace/internal/fusion"
	"github.com/nksrentas/ecotrace/internal/sci"
)

// Range is the uncertainty band around the reported figure. Always
// Lower <= reported <= Upper.
type Range struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// SourceContribution describes one source that fed the fused intensity.
type SourceContribution struct {
	Name        string                `json:"name"`
	Value       float64               `json:"value"`
	Unit        string                `json:"unit"`
	Freshness   factor.FreshnessClass `json:"freshness"`
	Reliability float64               `json:"reliability"`
}

// Equivalents express the footprint in everyday terms for presentation
// consumers.
type Equivalents struct {
	KmDriven  float64 `json:"kmDriven"`
	TreeYears float64 `json:"treeYears"`
}

const (
	kgPerKmDriven = 0.192 // average passenger car
	kgPerTreeYear = 21.77 // sequestration of one mature tree per year
)

func equivalentsFor(carbonKg float64) Equivalents {
	return Equivalents{
		KmDriven:  math.Round(carbonKg/kgPerKmDriven*100) / 100,
		TreeYears: math.Round(carbonKg/kgPerTreeYear*10000) / 10000,
	}
}

// Result is the enriched outcome of one calculation. The engine owns its
// construction; the audit ledger appends to AuditTrail but never replaces
// the result.
type Result struct {
	RequestID          string                `json:"requestId"`
	ActivityType       activity.Type         `json:"activityType"`
	CarbonKg           float64               `json:"carbonKg"`
	EnergyKWh          float64               `json:"energyKWh"`
	IntensityGPerKWh   float64               `json:"intensityGPerKWh"`
	Confidence         fusion.Confidence     `json:"confidence"`
	ConfidenceScore    float64               `json:"confidenceScore"`
	Methodology        string                `json:"methodology"`
	MethodologyVersion string                `json:"methodologyVersion"`
	Zone               string                `json:"zone"`
	ZoneFallback       bool                  `json:"zoneFallback,omitempty"`
	Sources            []SourceContribution  `json:"sources"`
	Uncertainty        Range                 `json:"uncertaintyRange"`
	Warnings           []string              `json:"warnings,omitempty"`
	CalculatedAt       time.Time             `json:"calculatedAt"`
	ValidUntil         time.Time             `json:"validUntil"`
	SCI                *sci.Calculation      `json:"sci,omitempty"`
	Compliance         *sci.ComplianceReport `json:"sciCompliance,omitempty"`
	CrossValidation    *crossval.Report      `json:"crossValidation,omitempty"`
	Equivalents        Equivalents           `json:"equivalents"`
	AuditTrail         []audit.Entry         `json:"auditTrail,omitempty"`
	AuditID            string                `json:"auditId,omitempty"`

	// PersistErr carries an audit persistence failure to the caller without
	// failing the calculation. Excluded from the wire format.
	PersistErr error `json:"-"`
}
