// v2
// internal/audit/ledger.go
// Package audit owns the append-only calculation record and the versioned
// methodology chain. Persistence failures are logged and swallowed from the
// caller's perspective: a broken ledger write must never make carbon
// estimation itself unavailable.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nksrentas/ecotrace/internal/activity"
)

var ErrNotFound = errors.New("audit record not found")

// Entry is one step in a calculation's audit trail.
type Entry struct {
	Step      string    `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// PerformanceMetrics captures the caller-observed cost of a calculation.
type PerformanceMetrics struct {
	DurationMs     float64 `json:"durationMs"`
	SourcesQueried int     `json:"sourcesQueried"`
	SourcesUsed    int     `json:"sourcesUsed"`
}

// Record is one persisted calculation. Created once, mutated only to attach
// later-arriving validation results, retained for a fixed window then purged.
type Record struct {
	ID          string             `json:"id"`
	RequestID   string             `json:"requestId"`
	Timestamp   time.Time          `json:"timestamp"`
	Activity    activity.Record    `json:"activityData"`
	Result      any                `json:"calculationResult"`
	Performance PerformanceMetrics `json:"performanceMetrics"`
	SystemInfo  map[string]string  `json:"systemInfo,omitempty"`
	UserID      string             `json:"userContext,omitempty"`

	// Typed projections of the result used by the query surface.
	ActivityType string  `json:"-"`
	Confidence   string  `json:"-"`
	CarbonKg     float64 `json:"-"`

	Validation any `json:"validationResult,omitempty"`
}

// Config holds the ledger retention policy.
type Config struct {
	Retention     time.Duration // age after which records are purged
	MaxRecords    int           // hard cap; oldest evicted first regardless of age
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{Retention: 90 * 24 * time.Hour, MaxRecords: 10000, SweepInterval: time.Hour}
}

// Ledger is the in-memory audit index. Records are held newest-first; all
// read-modify-write paths lock mu. An optional Publisher mirrors appended
// records to Kafka.
type Ledger struct {
	mu      sync.RWMutex
	cfg     Config
	log     *slog.Logger
	records []*Record // newest first
	byID    map[string]*Record
	pub     *Publisher

	now func() time.Time
}

func NewLedger(cfg Config, log *slog.Logger, pub *Publisher) *Ledger {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultConfig().MaxRecords
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Ledger{cfg: cfg, log: log, byID: make(map[string]*Record), pub: pub, now: time.Now}
}

// Append records one calculation and returns the audit id. Append is the
// only write path and never fails the caller: every error is returned for
// the composite result but the calculation stands on its own.
func (l *Ledger) Append(ctx context.Context, rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now().UTC()
	}

	l.mu.Lock()
	l.records = append([]*Record{rec}, l.records...)
	l.byID[rec.ID] = rec
	l.evictOverCapLocked()
	l.mu.Unlock()

	if l.log != nil {
		l.log.Info("audit_appended", "id", rec.ID, "requestId", rec.RequestID, "activityType", rec.ActivityType)
	}
	if l.pub != nil {
		l.pub.Enqueue(ctx, rec)
	}
	return rec.ID, nil
}

// AttachValidation mutates an existing record to carry a later-arriving
// validation result. This is the only permitted mutation.
func (l *Ledger) AttachValidation(id string, validation any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.Validation = validation
	return nil
}

// Get returns one record by audit id.
func (l *Ledger) Get(id string) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Filter selects audit records. Zero values mean "no constraint".
type Filter struct {
	RequestID    string
	ActivityType string
	UserID       string
	Confidence   string
	MinCarbonKg  *float64
	MaxCarbonKg  *float64
	From         time.Time
	To           time.Time
	Offset       int
	Limit        int
}

// QueryResult is one stable page of matches, newest first.
type QueryResult struct {
	Records    []*Record `json:"records"`
	TotalCount int       `json:"totalCount"`
	HasMore    bool      `json:"hasMore"`
}

const defaultPageSize = 50

// Query filters the index with stable newest-first offset/limit pagination.
func (l *Ledger) Query(f Filter) QueryResult {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []*Record
	for _, r := range l.records {
		if !f.matches(r) {
			continue
		}
		matched = append(matched, r)
	}
	total := len(matched)
	start := f.Offset
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return QueryResult{
		Records:    matched[start:end],
		TotalCount: total,
		HasMore:    end < total,
	}
}

func (f Filter) matches(r *Record) bool {
	if f.RequestID != "" && r.RequestID != f.RequestID {
		return false
	}
	if f.ActivityType != "" && r.ActivityType != f.ActivityType {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Confidence != "" && r.Confidence != f.Confidence {
		return false
	}
	if f.MinCarbonKg != nil && r.CarbonKg < *f.MinCarbonKg {
		return false
	}
	if f.MaxCarbonKg != nil && r.CarbonKg > *f.MaxCarbonKg {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// Statistics aggregates the recorded calculations.
type Statistics struct {
	Total        int                `json:"total"`
	ByType       map[string]int     `json:"byActivityType"`
	ByConfidence map[string]int     `json:"byConfidence"`
	MeanCarbonKg float64            `json:"meanCarbonKg"`
	LatencyMs    LatencyPercentiles `json:"latencyMs"`
}

type LatencyPercentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Stats computes counts and nearest-rank latency percentiles over the
// optional [from, to) window.
func (l *Ledger) Stats(from, to time.Time) Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Statistics{ByType: map[string]int{}, ByConfidence: map[string]int{}}
	var carbonSum float64
	var latencies []float64
	for _, r := range l.records {
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !r.Timestamp.Before(to) {
			continue
		}
		s.Total++
		s.ByType[r.ActivityType]++
		s.ByConfidence[r.Confidence]++
		carbonSum += r.CarbonKg
		latencies = append(latencies, r.Performance.DurationMs)
	}
	if s.Total > 0 {
		s.MeanCarbonKg = carbonSum / float64(s.Total)
	}
	sort.Float64s(latencies)
	s.LatencyMs = LatencyPercentiles{
		P50: percentile(latencies, 50),
		P95: percentile(latencies, 95),
		P99: percentile(latencies, 99),
	}
	return s
}

// percentile is nearest-rank over an ascending slice.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100 // ceil(p/100 * n)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// Sweep purges records older than the retention window and enforces the
// size cap. The cap takes precedence over age: when the count exceeds
// MaxRecords the oldest excess records are evicted even if young. Returns
// the number of removed records.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	cutoff := now.Add(-l.cfg.Retention)
	kept := l.records[:0]
	for _, r := range l.records {
		if r.Timestamp.Before(cutoff) {
			delete(l.byID, r.ID)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.records = kept
	removed += l.evictOverCapLocked()
	if removed > 0 && l.log != nil {
		l.log.Info("audit_swept", "removed", removed, "remaining", len(l.records))
	}
	return removed
}

// evictOverCapLocked drops the oldest records beyond MaxRecords. Records are
// newest-first, so eviction trims the tail.
func (l *Ledger) evictOverCapLocked() int {
	over := len(l.records) - l.cfg.MaxRecords
	if over <= 0 {
		return 0
	}
	for _, r := range l.records[len(l.records)-over:] {
		delete(l.byID, r.ID)
	}
	l.records = l.records[:len(l.records)-over]
	return over
}

// Run periodically sweeps until ctx is cancelled.
func (l *Ledger) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}
