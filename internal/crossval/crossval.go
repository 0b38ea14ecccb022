// v1
// internal/crossval/crossval.go
// Package crossval re-derives carbon estimates via alternative public
// methodologies and reports agreement against the primary result. Advisory
// only: divergence degrades confidence reporting, never blocks a result.
package crossval

import (
	"math"

	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/factor"
	"github.com/nksrentas/ecotrace/internal/fusion"
)

// ValidatorResult is one alternative derivation compared to the primary.
type ValidatorResult struct {
	Name      string           `json:"name"`
	CarbonKg  float64          `json:"carbonKg"`
	Deviation float64          `json:"deviation"`
	Class     fusion.PairClass `json:"class"`
}

// Report summarizes cross-validation across all validators.
type Report struct {
	Agreement     float64           `json:"agreement"` // agreeing validators / total
	ConsensusLow  float64           `json:"consensusLow"`
	ConsensusHigh float64           `json:"consensusHigh"`
	Results       []ValidatorResult `json:"perValidatorResults"`
}

// Alternative coefficient sets, deliberately different from the primary
// energy model so the validators are independent derivations.
const (
	ieaGlobalIntensity = 475.0 // gCO2e/kWh, IEA world average

	ccfWattsPerVCPU   = 3.5    // conservative high-end of published vCPU draw
	ccfKWhPerGB       = 0.006  // older fixed-network transfer estimate
	ccfKWhPerGBHour   = 8.9e-7 // blended disk coefficient
	ccfCommitKWh      = 0.03
	ccfDeployBaseKWh  = 0.08
	ccfDeployKWPerRun = 0.6
)

// transportAltKgPerKm holds alternative per-mode transport factors.
var transportAltKgPerKm = map[string]float64{"car": 0.192, "rail": 0.041, "air": 0.285}

// Validate reruns the estimate through each alternative methodology and
// classifies the deviation using the same bands as source reconciliation.
// Agreement counts validators graded match or close.
func Validate(rec activity.Record, primaryKg, energyKWh float64, zone string, th fusion.Thresholds) Report {
	validators := []struct {
		name   string
		derive func() float64
	}{
		{"iea_global_average", func() float64 { return energyKWh * ieaGlobalIntensity / 1000 }},
		{"ccf_coefficients", func() float64 { return ccfEstimate(rec, zone) }},
		{"regional_static", func() float64 {
			f := factor.Fallback(zone, rec.Timestamp)
			return energyKWh * f.Value / 1000
		}},
	}

	var results []ValidatorResult
	agreeing := 0
	low, high := primaryKg, primaryKg
	for _, v := range validators {
		kg := v.derive()
		if kg <= 0 {
			continue
		}
		dev := fusion.Deviation(primaryKg, kg)
		cls := th.Classify(dev)
		if cls == fusion.ClassMatch || cls == fusion.ClassClose {
			agreeing++
		}
		if kg < low {
			low = kg
		}
		if kg > high {
			high = kg
		}
		results = append(results, ValidatorResult{Name: v.name, CarbonKg: round6(kg), Deviation: round6(dev), Class: cls})
	}

	agreement := 1.0
	if len(results) > 0 {
		agreement = float64(agreeing) / float64(len(results))
	}
	return Report{
		Agreement:     round6(agreement),
		ConsensusLow:  round6(low),
		ConsensusHigh: round6(high),
		Results:       results,
	}
}

// ccfEstimate re-derives energy from scratch with the alternative
// coefficients, then applies the static regional intensity.
func ccfEstimate(rec activity.Record, zone string) float64 {
	intensity := factor.Fallback(zone, rec.Timestamp).Value
	var kwh float64
	switch rec.Type {
	case activity.CloudCompute:
		kwh = rec.CloudCompute.VCPUHours() * ccfWattsPerVCPU / 1000
	case activity.DataTransfer:
		kwh = rec.DataTransfer.Bytes / 1e9 * ccfKWhPerGB
	case activity.Storage:
		kwh = rec.Storage.SizeGB * rec.Storage.DurationHours * ccfKWhPerGBHour
	case activity.Electricity:
		kwh = rec.Electricity.KWh
	case activity.Transport:
		alt, ok := transportAltKgPerKm[rec.Transport.Mode]
		if !ok {
			return 0
		}
		return rec.Transport.Km * alt
	case activity.Commit:
		kwh = ccfCommitKWh
	case activity.Deployment:
		kwh = ccfDeployBaseKWh + ccfDeployKWPerRun*rec.Deployment.DurationSeconds/3600
	}
	return kwh * intensity / 1000
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
