// v1
// internal/breaker/breaker_test.go
package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	now := time.Unix(0, 0).UTC()
	b := New("test", cfg, nil)
	b.now = fixedClock(&now)
	return b, &now
}

func failing(ctx context.Context) error { return errBoom }
func succeeding(ctx context.Context) error { return nil }

func TestOpensAfterMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{MaxFailures: 3, Cooldown: 30 * time.Second})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: want errBoom, got %v", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("expected Open after %d failures, got %v", 3, b.State())
	}
	if err := b.Execute(ctx, succeeding); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected short-circuit ErrOpen, got %v", err)
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(Config{MaxFailures: 1, Cooldown: 30 * time.Second})
	ctx := context.Background()
	_ = b.Execute(ctx, failing)
	if b.State() != Open {
		t.Fatalf("expected Open, got %v", b.State())
	}
	*now = now.Add(31 * time.Second)
	if err := b.Execute(ctx, succeeding); err != nil {
		t.Fatalf("trial should succeed, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed after successful trial, got %v", b.State())
	}
}

func TestHalfOpenFailureExtendsCooldown(t *testing.T) {
	b, now := newTestBreaker(Config{MaxFailures: 1, Cooldown: 30 * time.Second, ExtendedCooldown: 2 * time.Minute})
	ctx := context.Background()
	_ = b.Execute(ctx, failing)
	*now = now.Add(31 * time.Second)
	if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("trial failure should surface op error, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected Open after failed trial, got %v", b.State())
	}
	// Base cooldown elapsed again, but the extended cooldown still applies.
	*now = now.Add(31 * time.Second)
	if err := b.Execute(ctx, succeeding); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen within extended cooldown, got %v", err)
	}
	*now = now.Add(2 * time.Minute)
	if err := b.Execute(ctx, succeeding); err != nil {
		t.Fatalf("expected trial after extended cooldown, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed, got %v", b.State())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{MaxFailures: 2, Cooldown: time.Second})
	ctx := context.Background()
	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, succeeding)
	_ = b.Execute(ctx, failing)
	if b.State() != Closed {
		t.Fatalf("interleaved success must reset the counter; got %v", b.State())
	}
}

func TestTransitionObserver(t *testing.T) {
	b, now := newTestBreaker(Config{MaxFailures: 1, Cooldown: time.Second})
	var seen []State
	b.OnTransition(func(name string, to State) { seen = append(seen, to) })
	ctx := context.Background()
	_ = b.Execute(ctx, failing)
	*now = now.Add(2 * time.Second)
	_ = b.Execute(ctx, succeeding)
	want := []State{Open, HalfOpen, Closed}
	if len(seen) != len(want) {
		t.Fatalf("transition count mismatch: got %v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d: got %v want %v", i, seen[i], want[i])
		}
	}
}
