// v1
// internal/geo/resolver.go
package geo

import (
	"log/slog"
	"strings"
)

// Location is a partial geographic description. Country is the strongest
// signal; Region and PostalCode refine it when present.
type Location struct {
	Country    string `json:"country"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
}

// Resolution is the outcome of a zone lookup. Fallback is set when the input
// could not be matched and the default zone was substituted, so downstream
// components can surface the data-quality warning.
type Resolution struct {
	Zone     string `json:"zone"`
	Fallback bool   `json:"fallback"`
}

// DefaultZone is returned for unresolvable input. Never an error: a wrong
// but traceable zone beats a failed calculation.
const DefaultZone = "GLOBAL"

// usRegionZones maps US state codes to grid zones.
var usRegionZones = map[string]string{
	"CA": "US-CAL", "OR": "US-NW", "WA": "US-NW",
	"TX": "US-TEX",
	"IL": "US-MIDW", "OH": "US-MIDW", "MI": "US-MIDW", "MN": "US-MIDW", "WI": "US-MIDW",
	"NY": "US-NE", "MA": "US-NE", "CT": "US-NE", "NJ": "US-NE", "PA": "US-NE",
	"FL": "US-SE", "GA": "US-SE", "NC": "US-SE", "VA": "US-SE", "TN": "US-SE",
}

// usPostalZones maps the leading digit of a US ZIP code to a grid zone,
// used only when no region is supplied.
var usPostalZones = map[byte]string{
	'0': "US-NE", '1': "US-NE", '2': "US-SE", '3': "US-SE",
	'4': "US-MIDW", '5': "US-MIDW", '6': "US-MIDW",
	'7': "US-TEX", '8': "US-NW", '9': "US-CAL",
}

// countryZones maps ISO country codes to zones. Countries without a
// dedicated entry resolve to their continental or the global zone.
var countryZones = map[string]string{
	"US": "US", "CA": "CA", "BR": "BR",
	"DE": "DE", "FR": "FR", "GB": "GB", "UK": "GB", "NO": "NO", "SE": "SE",
	"IE": "IE", "NL": "NL", "PL": "PL",
	"ES": "EU", "IT": "EU", "AT": "EU", "BE": "EU", "DK": "EU", "FI": "EU", "PT": "EU",
	"CN": "CN", "IN": "IN", "JP": "JP", "KR": "KR", "AU": "AU", "SG": "SG",
}

// Resolver maps locations to canonical grid zone identifiers. Pure lookup,
// no network I/O, never errors.
type Resolver struct {
	log *slog.Logger
}

func NewResolver(log *slog.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve maps loc to a grid zone with postal→region→country→default
// precedence. Unresolvable input logs a warning and maps to DefaultZone.
func (r *Resolver) Resolve(loc Location) Resolution {
	country := strings.ToUpper(strings.TrimSpace(loc.Country))
	region := strings.ToUpper(strings.TrimSpace(loc.Region))
	postal := strings.TrimSpace(loc.PostalCode)

	if country == "US" {
		if z, ok := usRegionZones[region]; ok {
			return Resolution{Zone: z}
		}
		if postal != "" {
			if z, ok := usPostalZones[postal[0]]; ok {
				return Resolution{Zone: z}
			}
		}
		return Resolution{Zone: "US"}
	}
	if z, ok := countryZones[country]; ok {
		return Resolution{Zone: z}
	}
	if r.log != nil {
		r.log.Warn("zone_fallback", "country", loc.Country, "region", loc.Region, "postal", loc.PostalCode)
	}
	return Resolution{Zone: DefaultZone, Fallback: true}
}
