// v1
// internal/geo/resolver_test.go
package geo

import "testing"

func TestUSRegionTakesPrecedenceOverPostal(t *testing.T) {
	r := NewResolver(nil)
	got := r.Resolve(Location{Country: "US", Region: "CA", PostalCode: "10001"})
	if got.Zone != "US-CAL" || got.Fallback {
		t.Fatalf("region must win over postal: %+v", got)
	}
}

func TestUSPostalUsedWithoutRegion(t *testing.T) {
	r := NewResolver(nil)
	cases := map[string]string{
		"10001": "US-NE",
		"73301": "US-TEX",
		"94105": "US-CAL",
	}
	for zip, want := range cases {
		got := r.Resolve(Location{Country: "US", PostalCode: zip})
		if got.Zone != want {
			t.Fatalf("zip %s: got %s want %s", zip, got.Zone, want)
		}
	}
}

func TestUSWithoutRefinementResolvesNational(t *testing.T) {
	r := NewResolver(nil)
	got := r.Resolve(Location{Country: "US"})
	if got.Zone != "US" || got.Fallback {
		t.Fatalf("bare US must resolve to the national zone: %+v", got)
	}
}

func TestCountryLookupIsCaseInsensitive(t *testing.T) {
	r := NewResolver(nil)
	if got := r.Resolve(Location{Country: "de"}); got.Zone != "DE" {
		t.Fatalf("lowercase country should resolve: %+v", got)
	}
	if got := r.Resolve(Location{Country: " fr "}); got.Zone != "FR" {
		t.Fatalf("padded country should resolve: %+v", got)
	}
}

func TestUnknownCountryFallsBackToGlobal(t *testing.T) {
	r := NewResolver(nil)
	got := r.Resolve(Location{Country: "ZZ"})
	if got.Zone != DefaultZone || !got.Fallback {
		t.Fatalf("unknown country must fall back with the flag set: %+v", got)
	}
}

func TestEmptyLocationFallsBack(t *testing.T) {
	r := NewResolver(nil)
	got := r.Resolve(Location{})
	if got.Zone != DefaultZone || !got.Fallback {
		t.Fatalf("empty location must fall back: %+v", got)
	}
}
