// v2
// internal/engine/energy.go
package engine

import (
	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/source"
)

// Energy-model coefficients. Compute and storage follow Cloud Carbon
// Footprint's published figures; commit and deployment are fixed per-event
// estimates for developer activity.
const (
	kWhPerVCPUHour  = 0.00212 // 2.12 W average vCPU draw
	kWhPerGBNetwork = 0.001
	kWhPerGBHourHDD = 6.5e-7 // 0.65 W/TB
	kWhPerGBHourSSD = 1.2e-6 // 1.2 W/TB

	peakIntensityMultiplier    = 1.15
	offpeakIntensityMultiplier = 0.90

	commitBaseKWh     = 0.02 // editing session + CI share for one commit
	commitPerFileKWh  = 0.0002
	deploymentBaseKWh = 0.05
	deploymentBuildKW = 0.5 // build-server draw while the deployment runs
)

// transportEnergyKWhPerKm and transportKgPerKm hold per-mode coefficients.
// Transport carbon comes from fuel, not the grid, so it bypasses the fused
// intensity entirely.
var (
	transportEnergyKWhPerKm = map[string]float64{"car": 0.80, "rail": 0.12, "air": 0.55}
	transportKgPerKm        = map[string]float64{"car": 0.170, "rail": 0.035, "air": 0.255}
)

// energyFor computes the energy figure (kWh) for a validated activity.
// cloud_compute folds in the provider region's power-usage-effectiveness.
func energyFor(rec activity.Record) float64 {
	switch rec.Type {
	case activity.CloudCompute:
		m := rec.CloudCompute
		return m.VCPUHours() * kWhPerVCPUHour * source.RegionPUE(m.Provider, m.Region)
	case activity.DataTransfer:
		return rec.DataTransfer.Bytes / 1e9 * kWhPerGBNetwork
	case activity.Storage:
		m := rec.Storage
		per := kWhPerGBHourHDD
		if m.Tier == "ssd" {
			per = kWhPerGBHourSSD
		}
		return m.SizeGB * m.DurationHours * per
	case activity.Electricity:
		return rec.Electricity.KWh
	case activity.Transport:
		return rec.Transport.Km * transportEnergyKWhPerKm[rec.Transport.Mode]
	case activity.Commit:
		return commitBaseKWh + float64(rec.Commit.FilesChanged)*commitPerFileKWh
	case activity.Deployment:
		return deploymentBaseKWh + deploymentBuildKW*rec.Deployment.DurationSeconds/3600
	default:
		return 0
	}
}

// intensityMultiplier adjusts the fused intensity for electricity
// activities carrying a time-of-day bucket.
func intensityMultiplier(rec activity.Record) float64 {
	if rec.Type != activity.Electricity {
		return 1
	}
	switch rec.Electricity.TimeOfDay {
	case "peak":
		return peakIntensityMultiplier
	case "offpeak":
		return offpeakIntensityMultiplier
	default:
		return 1
	}
}
