// v3
// internal/engine/engine.go
// Package engine orchestrates the calculation pipeline: factor fan-out,
// reconciliation, per-activity arithmetic, conservative bias, SCI scoring,
// cross-validation, and audit persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/audit"
	"github.com/nksrentas/ecotrace/internal/crossval"
	"github.com/nksrentas/ecotrace/internal/factor"
	"github.com/nksrentas/ecotrace/internal/fusion"
	"github.com/nksrentas/ecotrace/internal/geo"
	"github.com/nksrentas/ecotrace/internal/sci"
	"github.com/nksrentas/ecotrace/internal/source"
)

// ErrCalculationUnavailable is the only fatal calculation path: no emission
// factor obtainable even from the static fallback table. Everything else
// degrades confidence instead of failing.
var ErrCalculationUnavailable = errors.New("calculation unavailable: no emission factor obtainable")

// Observer receives engine telemetry. Nil-safe: the engine tolerates a nil
// observer.
type Observer interface {
	CalculationDone(activityType, confidence string, d time.Duration)
	SourceUnavailable(name string)
}

// Config holds the engine tunables.
type Config struct {
	// BiasMultiplier applies the conservative upward adjustment: the design
	// stance is to never underestimate.
	BiasMultiplier float64
	Thresholds     fusion.Thresholds
	// Deadline bounds one calculation; adapters still pending at expiry are
	// treated as unavailable rather than aborting the request.
	Deadline time.Duration
}

func DefaultConfig() Config {
	return Config{BiasMultiplier: 1.15, Thresholds: fusion.DefaultThresholds(), Deadline: 10 * time.Second}
}

const methodologyName = "reliability-weighted multi-source fusion, conservative bias"

// minUncertaintySpread floors the band so even perfect source agreement
// never reads as exact.
const minUncertaintySpread = 0.10

// Engine is the calculation orchestrator. Providers are injected so new
// sources can be added without touching the orchestration, and so tests can
// run against stubs.
type Engine struct {
	log       *slog.Logger
	cfg       Config
	resolver  *geo.Resolver
	providers []source.Provider
	ledger    *audit.Ledger
	methods   *audit.MethodologyStore
	obs       Observer

	now func() time.Time
}

func New(log *slog.Logger, cfg Config, resolver *geo.Resolver, providers []source.Provider, ledger *audit.Ledger, methods *audit.MethodologyStore, obs Observer) *Engine {
	if cfg.BiasMultiplier <= 0 {
		cfg.BiasMultiplier = DefaultConfig().BiasMultiplier
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultConfig().Deadline
	}
	if cfg.Thresholds == (fusion.Thresholds{}) {
		cfg.Thresholds = fusion.DefaultThresholds()
	}
	return &Engine{log: log, cfg: cfg, resolver: resolver, providers: providers, ledger: ledger, methods: methods, obs: obs, now: time.Now}
}

type fetched struct {
	name string
	f    factor.EmissionFactor
	err  error
}

// Calculate runs the full pipeline for one activity. Invalid input fails
// fast before any external call; upstream unavailability and data-quality
// issues degrade confidence instead of failing.
func (e *Engine) Calculate(ctx context.Context, rec activity.Record) (*Result, error) {
	started := e.now()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	trail := []audit.Entry{{Step: "validated", Timestamp: started.UTC()}}

	zone := geo.Resolution{Zone: geo.DefaultZone, Fallback: true}
	if rec.Location != nil {
		zone = e.resolver.Resolve(*rec.Location)
	}
	trail = append(trail, audit.Entry{Step: "zone_resolved", Timestamp: e.now().UTC(), Detail: zone.Zone})

	factors, descriptors, unavailable := e.fanOut(ctx, zone.Zone, rec.Timestamp)
	trail = append(trail, audit.Entry{
		Step:      "sources_queried",
		Timestamp: e.now().UTC(),
		Detail:    fmt.Sprintf("%d of %d available", len(factors), len(e.providers)),
	})

	assessment := fusion.Reconcile(factors, descriptors, e.cfg.Thresholds)
	if !assessment.Valid {
		fb := factor.Fallback(zone.Zone, rec.Timestamp)
		factors = []factor.EmissionFactor{fb}
		descriptors = map[string]factor.SourceDescriptor{
			fb.Source: {Name: fb.Source, Type: "static", Freshness: factor.FreshAnnual, Reliability: 0.5},
		}
		assessment = fusion.Assessment{
			Valid:    true,
			Fused:    fb.Value,
			Grade:    fusion.Low,
			Score:    0.3,
			Variance: fb.Uncertainty,
			Sources:  []string{fb.Source},
			Warnings: append(assessment.Warnings, "all live sources unavailable; static regional average applied"),
		}
		trail = append(trail, audit.Entry{Step: "fallback_applied", Timestamp: e.now().UTC(), Detail: fb.Region})
	}
	if assessment.Fused <= 0 {
		return nil, ErrCalculationUnavailable
	}

	energy := energyFor(rec)
	intensity := assessment.Fused * intensityMultiplier(rec)

	// Base (unbiased) carbon in kg. Transport is fuel-based and bypasses the
	// grid intensity.
	var base float64
	if rec.Type == activity.Transport {
		base = rec.Transport.Km * transportKgPerKm[rec.Transport.Mode]
	} else {
		base = energy * intensity / 1000
	}
	carbon := base * e.cfg.BiasMultiplier
	trail = append(trail, audit.Entry{
		Step:      "carbon_computed",
		Timestamp: e.now().UTC(),
		Detail:    fmt.Sprintf("base %.6f kg, bias x%.2f", base, e.cfg.BiasMultiplier),
	})

	spread := math.Max(assessment.Variance, minUncertaintySpread)
	lower := base * (1 - math.Min(spread, 0.9))
	upper := carbon * (1 + spread)

	// Effective intensity keeps SCI components consistent with the reported
	// carbon for fuel-based activities.
	effIntensity := intensity
	if energy > 0 {
		effIntensity = base * 1000 / energy
	}

	// SCI and cross-validation are independent of each other; run them
	// concurrently once the base figure exists.
	var (
		wg       sync.WaitGroup
		sciCalc  sci.Calculation
		xvReport crossval.Report
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sciCalc = sci.Calculate(rec, energy, effIntensity)
	}()
	go func() {
		defer wg.Done()
		xvReport = crossval.Validate(rec, carbon, energy, zone.Zone, e.cfg.Thresholds)
	}()
	wg.Wait()

	compliance := sci.ValidateCompliance(sciCalc, bestFreshness(descriptors, assessment.Sources), false)

	warnings := assessment.Warnings
	if zone.Fallback {
		warnings = append(warnings, "location unresolved; default zone applied")
	}
	if xvReport.Agreement < 0.5 {
		warnings = append(warnings, fmt.Sprintf("cross-validation agreement low: %.0f%%", xvReport.Agreement*100))
	}

	result := &Result{
		RequestID:          requestID,
		ActivityType:       rec.Type,
		CarbonKg:           round9(carbon),
		EnergyKWh:          round9(energy),
		IntensityGPerKWh:   round9(intensity),
		Confidence:         assessment.Grade,
		ConfidenceScore:    assessment.Score,
		Methodology:        methodologyName,
		MethodologyVersion: e.methodologyVersion(),
		Zone:               zone.Zone,
		ZoneFallback:       zone.Fallback,
		Sources:            contributions(factors, descriptors),
		Uncertainty:        Range{Lower: round9(lower), Upper: round9(upper)},
		Warnings:           warnings,
		CalculatedAt:       started.UTC(),
		ValidUntil:         earliestExpiry(factors, started),
		SCI:                &sciCalc,
		Compliance:         &compliance,
		CrossValidation:    &xvReport,
		Equivalents:        equivalentsFor(carbon),
		AuditTrail:         trail,
	}

	e.persist(ctx, rec, result, started, len(e.providers), len(factors))

	if e.obs != nil {
		e.obs.CalculationDone(string(rec.Type), string(assessment.Grade), e.now().Sub(started))
		for _, name := range unavailable {
			e.obs.SourceUnavailable(name)
		}
	}
	return result, nil
}

// fanOut queries every provider concurrently and joins, tolerant of any
// subset failing. The join completes before reconciliation starts, so no
// factor can arrive mid-reconcile.
func (e *Engine) fanOut(ctx context.Context, zone string, asOf time.Time) ([]factor.EmissionFactor, map[string]factor.SourceDescriptor, []string) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	results := make([]fetched, len(e.providers))
	var wg sync.WaitGroup
	for i, p := range e.providers {
		wg.Add(1)
		go func(i int, p source.Provider) {
			defer wg.Done()
			f, err := p.Factor(ctx, zone, asOf)
			results[i] = fetched{name: p.Name(), f: f, err: err}
		}(i, p)
	}
	wg.Wait()

	var factors []factor.EmissionFactor
	descriptors := make(map[string]factor.SourceDescriptor)
	var unavailable []string
	for i, r := range results {
		if r.err != nil {
			unavailable = append(unavailable, r.name)
			if e.log != nil {
				e.log.Warn("source_unavailable", "source", r.name, "err", r.err.Error())
			}
			continue
		}
		factors = append(factors, r.f)
		descriptors[r.f.Source] = e.providers[i].Descriptor()
	}
	return factors, descriptors, unavailable
}

func (e *Engine) methodologyVersion() string {
	if e.methods == nil {
		return "1.0.0"
	}
	v, err := e.methods.Current()
	if err != nil {
		return "1.0.0"
	}
	return v.Version
}

// persist delegates to the audit ledger. Failures surface only through
// Result.PersistErr; the calculation always returns. The audit id and the
// final trail entry are stamped before Append so the result is never
// mutated once the ledger has indexed it and concurrent queries can be
// encoding it.
func (e *Engine) persist(ctx context.Context, rec activity.Record, result *Result, started time.Time, queried, used int) {
	if e.ledger == nil {
		return
	}
	id := uuid.NewString()
	result.AuditID = id
	result.AuditTrail = append(result.AuditTrail, audit.Entry{Step: "persisted", Timestamp: e.now().UTC(), Detail: id})
	auditRec := &audit.Record{
		ID:           id,
		RequestID:    result.RequestID,
		Timestamp:    started.UTC(),
		Activity:     rec,
		Result:       result,
		ActivityType: string(rec.Type),
		Confidence:   string(result.Confidence),
		CarbonKg:     result.CarbonKg,
		UserID:       rec.UserID,
		Performance: audit.PerformanceMetrics{
			DurationMs:     float64(e.now().Sub(started)) / float64(time.Millisecond),
			SourcesQueried: queried,
			SourcesUsed:    used,
		},
	}
	if _, err := e.ledger.Append(ctx, auditRec); err != nil {
		if e.log != nil {
			e.log.Error("audit_persist_failed", "requestId", result.RequestID, "err", err.Error())
		}
		// The record never reached the index, so unwinding is race-free.
		result.AuditID = ""
		result.AuditTrail = result.AuditTrail[:len(result.AuditTrail)-1]
		result.PersistErr = err
	}
}

func contributions(factors []factor.EmissionFactor, descriptors map[string]factor.SourceDescriptor) []SourceContribution {
	out := make([]SourceContribution, 0, len(factors))
	for _, f := range factors {
		d := descriptors[f.Source]
		out = append(out, SourceContribution{
			Name:        f.Source,
			Value:       f.Value,
			Unit:        f.Unit,
			Freshness:   d.Freshness,
			Reliability: d.Reliability,
		})
	}
	return out
}

// earliestExpiry picks the conservative expiry: the shortest ValidUntil
// among contributing factors.
func earliestExpiry(factors []factor.EmissionFactor, asOf time.Time) time.Time {
	var min time.Time
	for _, f := range factors {
		if f.ValidUntil.IsZero() {
			continue
		}
		if min.IsZero() || f.ValidUntil.Before(min) {
			min = f.ValidUntil
		}
	}
	if min.IsZero() {
		min = asOf.Add(24 * time.Hour)
	}
	return min.UTC()
}

// bestFreshness returns the freshest class among contributing sources, used
// by the SCI compliance check.
func bestFreshness(descriptors map[string]factor.SourceDescriptor, sources []string) factor.FreshnessClass {
	order := map[factor.FreshnessClass]int{
		factor.FreshRealtime: 0, factor.FreshHourly: 1, factor.FreshDaily: 2,
		factor.FreshQuarterly: 3, factor.FreshAnnual: 4,
	}
	best := factor.FreshAnnual
	for _, s := range sources {
		if d, ok := descriptors[s]; ok {
			if order[d.Freshness] < order[best] {
				best = d.Freshness
			}
		}
	}
	return best
}

func round9(v float64) float64 { return math.Round(v*1e9) / 1e9 }
