// v1
// internal/factor/fallback.go
package factor

import "time"

// fallbackIntensity holds static regional grid averages (gCO2e/kWh) used when
// every live source is unavailable. Values follow published annual national
// averages; they are deliberately coarse and always force confidence "low".
var fallbackIntensity = map[string]float64{
	"GLOBAL":  475,
	"US":      380,
	"US-CAL":  210,
	"US-TEX":  410,
	"US-MIDW": 520,
	"US-NE":   290,
	"US-NW":   120,
	"US-SE":   420,
	"CA":      130,
	"BR":      90,
	"EU":      275,
	"DE":      350,
	"FR":      55,
	"GB":      230,
	"NO":      25,
	"SE":      45,
	"IE":      290,
	"NL":      330,
	"PL":      640,
	"CN":      555,
	"IN":      710,
	"JP":      460,
	"KR":      430,
	"AU":      510,
	"SG":      390,
}

const (
	// FallbackSource names the synthetic source used for static averages.
	FallbackSource = "static_regional_average"
	// fallbackHorizon bounds how long a fallback-derived result stays valid.
	fallbackHorizon = 24 * time.Hour
)

// Fallback returns the static regional average for zone, degrading to the
// global average when the zone is unknown. It always succeeds; this is the
// structural guarantee that carbon estimation itself never becomes
// unavailable.
func Fallback(zone string, asOf time.Time) EmissionFactor {
	v, ok := fallbackIntensity[zone]
	region := zone
	if !ok {
		v = fallbackIntensity["GLOBAL"]
		region = "GLOBAL"
	}
	return EmissionFactor{
		ID:          "fallback-" + region,
		Value:       v,
		Unit:        "gCO2e/kWh",
		Source:      FallbackSource,
		Region:      region,
		ValidFrom:   asOf,
		ValidUntil:  asOf.Add(fallbackHorizon),
		Uncertainty: 0.30,
	}
}
