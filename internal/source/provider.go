// v1
// internal/source/provider.go
package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nksrentas/ecotrace/internal/breaker"
	"github.com/nksrentas/ecotrace/internal/factor"
)

// ErrUnavailable signals that a source cannot currently serve a factor.
// Callers treat it as a degraded path, never a user-visible error.
var ErrUnavailable = errors.New("emission factor source unavailable")

// Provider is the uniform contract every external data source satisfies.
// Adapters are injected into the engine, not hard-wired, so new sources can
// be added without touching the orchestrator.
type Provider interface {
	Name() string
	Descriptor() factor.SourceDescriptor
	// Factor returns the emission factor for zone valid at asOf, or
	// ErrUnavailable when the source cannot serve the request.
	Factor(ctx context.Context, zone string, asOf time.Time) (factor.EmissionFactor, error)
}

// Guarded wraps a Provider with a circuit breaker so a slow or unreachable
// upstream cannot block the calculation path. Breaker fast-fails and inner
// errors both collapse to ErrUnavailable.
type Guarded struct {
	inner Provider
	brk   *breaker.Breaker
}

func Guard(inner Provider, cfg breaker.Config, log *slog.Logger) *Guarded {
	return &Guarded{inner: inner, brk: breaker.New(inner.Name(), cfg, log)}
}

func (g *Guarded) Name() string                        { return g.inner.Name() }
func (g *Guarded) Descriptor() factor.SourceDescriptor { return g.inner.Descriptor() }

// Breaker exposes the underlying breaker for observation and tests.
func (g *Guarded) Breaker() *breaker.Breaker { return g.brk }

func (g *Guarded) Factor(ctx context.Context, zone string, asOf time.Time) (factor.EmissionFactor, error) {
	var out factor.EmissionFactor
	err := g.brk.Execute(ctx, func(ctx context.Context) error {
		f, err := g.inner.Factor(ctx, zone, asOf)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return factor.EmissionFactor{}, ErrUnavailable
	}
	return out, nil
}
