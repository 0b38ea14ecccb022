// v1
// internal/audit/methodology_test.go
package audit

import (
	"errors"
	"testing"
)

func TestNextVersionFromEmpty(t *testing.T) {
	s := NewMethodologyStore(nil)
	if v := s.NextVersion(); v != "1.0.0" {
		t.Fatalf("empty store should start at 1.0.0, got %s", v)
	}
}

func TestNextVersionBumpsPatchOfNumericMax(t *testing.T) {
	s := NewMethodologyStore(nil)
	if _, err := s.Create(Methodology{Name: "fused-intensity"}, nil, "ops", "1.0.0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if v := s.NextVersion(); v != "1.0.1" {
		t.Fatalf("want 1.0.1, got %s", v)
	}
	if _, err := s.Create(Methodology{Name: "fused-intensity"}, nil, "ops", "1.2.5"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(Methodology{Name: "fused-intensity"}, nil, "ops", "2.0.0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if v := s.NextVersion(); v != "2.0.1" {
		t.Fatalf("numeric max of {1.0.0,1.2.5,2.0.0} bumps to 2.0.1, got %s", v)
	}
}

func TestNumericNotLexicographicComparison(t *testing.T) {
	s := NewMethodologyStore(nil)
	for _, v := range []string{"1.9.0", "1.10.0"} {
		if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", v); err != nil {
			t.Fatalf("create %s: %v", v, err)
		}
	}
	if v := s.NextVersion(); v != "1.10.1" {
		t.Fatalf("1.10.0 > 1.9.0 numerically; want 1.10.1, got %s", v)
	}
}

func TestExactlyOneActiveVersion(t *testing.T) {
	s := NewMethodologyStore(nil)
	v1, err := s.Create(Methodology{Name: "m"}, []string{"initial"}, "ops", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v2, err := s.Create(Methodology{Name: "m"}, []string{"tuned bias"}, "ops", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v2.Version != "1.0.1" {
		t.Fatalf("implicit create should bump patch, got %s", v2.Version)
	}

	got1, _ := s.Get(v1.Version)
	if !got1.Deprecated || got1.SupersededBy != v2.Version {
		t.Fatalf("previous version must be deprecated and chained: %+v", got1)
	}
	cur, err := s.Current()
	if err != nil || cur.Version != v2.Version {
		t.Fatalf("current mismatch: %v %v", cur, err)
	}
	active := 0
	for _, v := range s.List() {
		if !v.Deprecated {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("exactly one active version expected, got %d", active)
	}
}

func TestDeprecateIsTerminal(t *testing.T) {
	s := NewMethodologyStore(nil)
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Superseding create retires 1.0.0; any further deprecation must fail.
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", ""); err != nil {
		t.Fatalf("create successor: %v", err)
	}
	if err := s.Deprecate("1.0.0", ""); !errors.Is(err, ErrVersionDeprecated) {
		t.Fatalf("re-deprecation must fail, got %v", err)
	}
}

func TestDeprecateActiveRequiresSuccessor(t *testing.T) {
	s := NewMethodologyStore(nil)
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", "1.0.0"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Deprecate("1.0.0", ""); !errors.Is(err, ErrActiveWithoutSuccessor) {
		t.Fatalf("deprecating the only active version must be rejected, got %v", err)
	}
	if err := s.Deprecate("1.0.0", "1.0.0"); !errors.Is(err, ErrActiveWithoutSuccessor) {
		t.Fatalf("a version cannot supersede itself, got %v", err)
	}
	if err := s.Deprecate("1.0.0", "9.9.9"); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("missing successor must be rejected, got %v", err)
	}

	// The store is untouched by the rejected calls.
	cur, err := s.Current()
	if err != nil || cur.Version != "1.0.0" || cur.Deprecated {
		t.Fatalf("active version must survive rejected deprecations: %+v %v", cur, err)
	}
	active := 0
	for _, v := range s.List() {
		if !v.Deprecated {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("exactly one active version expected, got %d", active)
	}
}

func TestDeprecateRejectsDeprecatedSuccessor(t *testing.T) {
	s := NewMethodologyStore(nil)
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", "1.0.0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", "1.1.0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	// 1.0.0 is deprecated by the second create; it cannot take over again.
	if err := s.Deprecate("1.1.0", "1.0.0"); !errors.Is(err, ErrActiveWithoutSuccessor) {
		t.Fatalf("deprecated successor must be rejected, got %v", err)
	}
	cur, err := s.Current()
	if err != nil || cur.Version != "1.1.0" {
		t.Fatalf("current must remain 1.1.0: %+v %v", cur, err)
	}
}

func TestCurrentOnEmptyStore(t *testing.T) {
	s := NewMethodologyStore(nil)
	if _, err := s.Current(); !errors.Is(err, ErrNoMethodology) {
		t.Fatalf("want ErrNoMethodology, got %v", err)
	}
}

func TestCreateRejectsMalformedSemver(t *testing.T) {
	s := NewMethodologyStore(nil)
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", "1.0"); err == nil {
		t.Fatalf("two-component version must be rejected")
	}
	if _, err := s.Create(Methodology{Name: "m"}, nil, "ops", "a.b.c"); err == nil {
		t.Fatalf("non-numeric version must be rejected")
	}
}
