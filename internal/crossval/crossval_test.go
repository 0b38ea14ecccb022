// v1
// internal/crossval/crossval_test.go
package crossval

import (
	"testing"
	"time"

	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/fusion"
)

func electricityRecord(kwh float64) activity.Record {
	return activity.Record{
		Type:        activity.Electricity,
		Timestamp:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Electricity: &activity.ElectricityMeta{KWh: kwh},
	}
}

func TestAgreementWhenPrimaryMatchesGlobalAverage(t *testing.T) {
	// Primary derived with the IEA intensity should agree with the IEA
	// validator exactly.
	energy := 10.0
	primary := energy * 475 / 1000
	r := Validate(electricityRecord(energy), primary, energy, "GLOBAL", fusion.DefaultThresholds())
	if len(r.Results) == 0 {
		t.Fatalf("expected validator results")
	}
	for _, v := range r.Results {
		if v.Name == "iea_global_average" && v.Class != fusion.ClassMatch {
			t.Fatalf("iea validator should match, got %s (dev %f)", v.Class, v.Deviation)
		}
	}
	if r.Agreement <= 0 {
		t.Fatalf("agreement should be positive, got %f", r.Agreement)
	}
}

func TestConsensusRangeBracketsPrimary(t *testing.T) {
	energy := 5.0
	primary := 2.0
	r := Validate(electricityRecord(energy), primary, energy, "FR", fusion.DefaultThresholds())
	if r.ConsensusLow > primary || r.ConsensusHigh < primary {
		t.Fatalf("consensus range must include the primary: [%f, %f] vs %f", r.ConsensusLow, r.ConsensusHigh, primary)
	}
	if r.ConsensusLow > r.ConsensusHigh {
		t.Fatalf("inverted consensus range")
	}
}

func TestDivergentPrimaryLowersAgreement(t *testing.T) {
	energy := 10.0
	aligned := Validate(electricityRecord(energy), energy*475/1000, energy, "GLOBAL", fusion.DefaultThresholds())
	skewed := Validate(electricityRecord(energy), energy*475/1000*5, energy, "GLOBAL", fusion.DefaultThresholds())
	if skewed.Agreement >= aligned.Agreement {
		t.Fatalf("a 5x-off primary cannot agree more: %f vs %f", skewed.Agreement, aligned.Agreement)
	}
}

func TestTransportUsesAlternativeFactors(t *testing.T) {
	rec := activity.Record{
		Type:      activity.Transport,
		Timestamp: time.Now(),
		Transport: &activity.TransportMeta{Km: 100, Mode: "car"},
	}
	r := Validate(rec, 17.0, 0, "GLOBAL", fusion.DefaultThresholds())
	found := false
	for _, v := range r.Results {
		if v.Name == "ccf_coefficients" {
			found = true
			if v.CarbonKg != 19.2 {
				t.Fatalf("car alternative should be 100*0.192, got %f", v.CarbonKg)
			}
		}
	}
	if !found {
		t.Fatalf("ccf validator missing for transport")
	}
}
