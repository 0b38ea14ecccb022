// v2
// internal/breaker/breaker.go
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker's position in the Closed -> Open -> HalfOpen cycle.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker short-circuits a call.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	Cooldown         time.Duration // wait before allowing a half-open trial
	ExtendedCooldown time.Duration // wait after a failed half-open trial
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{MaxFailures: 3, Cooldown: 30 * time.Second, ExtendedCooldown: 2 * time.Minute}
}

// Breaker is an explicit finite-state machine guarding one upstream
// dependency. Mutations are serialized behind mu so the breaker is safe for
// concurrent fan-out callers.
type Breaker struct {
	name string
	cfg  Config
	log  *slog.Logger

	// onTransition, when set, observes every state change. Used for metrics.
	onTransition func(name string, to State)

	mu       sync.Mutex
	state    State
	fails    int
	openedAt time.Time
	cooldown time.Duration

	now func() time.Time // injectable clock for tests
}

func New(name string, cfg Config, log *slog.Logger) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.ExtendedCooldown <= 0 {
		cfg.ExtendedCooldown = 2 * cfg.Cooldown
	}
	return &Breaker{name: name, cfg: cfg, log: log, state: Closed, cooldown: cfg.Cooldown, now: time.Now}
}

// OnTransition registers a state-change observer. Must be called before the
// breaker is shared across goroutines.
func (b *Breaker) OnTransition(fn func(name string, to State)) { b.onTransition = fn }

// Execute runs op under the breaker's policy. When the breaker is Open and
// the cooldown has not expired the call short-circuits with ErrOpen. After
// cooldown a single trial runs in HalfOpen: success closes the breaker,
// failure re-opens it with the extended cooldown.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.transition(HalfOpen)
		b.mu.Unlock()
		return b.trial(ctx, op)
	case HalfOpen:
		// Another goroutine already holds the trial slot.
		b.mu.Unlock()
		return ErrOpen
	}
	b.mu.Unlock()

	err := op(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.fails = 0
		return nil
	}
	b.fails++
	if b.log != nil {
		b.log.Warn("breaker_op_failed", "name", b.name, "failures", b.fails, "err", err.Error())
	}
	if b.fails >= b.cfg.MaxFailures {
		b.openLocked(b.cfg.Cooldown)
	}
	return err
}

// trial runs the single HalfOpen probe call.
func (b *Breaker) trial(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if b.log != nil {
			b.log.Warn("breaker_trial_failed", "name", b.name, "err", err.Error())
		}
		b.openLocked(b.cfg.ExtendedCooldown)
		return err
	}
	b.fails = 0
	b.transition(Closed)
	if b.log != nil {
		b.log.Info("breaker_closed_after_trial", "name", b.name)
	}
	return nil
}

func (b *Breaker) openLocked(cooldown time.Duration) {
	b.openedAt = b.now()
	b.cooldown = cooldown
	b.transition(Open)
	if b.log != nil {
		b.log.Error("breaker_opened", "name", b.name, "cooldown", cooldown.String())
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	b.state = to
	if b.onTransition != nil {
		b.onTransition(b.name, to)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
