// v1
// internal/cache/cache_test.go
package cache

import (
	"testing"
	"time"
)

type countingObserver struct {
	hits, misses int
}

func (c *countingObserver) CacheHit(string)  { c.hits++ }
func (c *countingObserver) CacheMiss(string) { c.misses++ }

func TestGetSetAndExpiry(t *testing.T) {
	obs := &countingObserver{}
	c := New[int]("audit", 30*time.Millisecond, obs)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("empty cache should miss")
	}
	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok || v != 42 {
		t.Fatalf("expected hit with 42, got %v %v", v, ok)
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry should have expired")
	}
	if obs.hits != 1 || obs.misses != 2 {
		t.Fatalf("observer counts mismatch: hits=%d misses=%d", obs.hits, obs.misses)
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := AuditKey(" abc "); got != "audit_abc" {
		t.Fatalf("audit key mismatch: %s", got)
	}
	if got := MethodologyKey("1.0.1"); got != "methodology_1.0.1" {
		t.Fatalf("methodology key mismatch: %s", got)
	}
}
