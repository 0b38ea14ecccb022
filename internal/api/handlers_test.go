// v1
// internal/api/handlers_test.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/audit"
	"github.com/nksrentas/ecotrace/internal/engine"
	"github.com/nksrentas/ecotrace/internal/fusion"
)

type stubEngine struct {
	calls  int
	result *engine.Result
	err    error
}

func (s *stubEngine) Calculate(_ context.Context, rec activity.Record) (*engine.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return s.result, nil
}

func newTestHandlers(t *testing.T, e calculator) *Handlers {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Handlers{
		Log:     logger,
		Engine:  e,
		Ledger:  audit.NewLedger(audit.Config{}, logger, nil),
		Methods: audit.NewMethodologyStore(logger),
	}
}

func newTestRouter(t *testing.T, e calculator) (*Handlers, http.Handler) {
	t.Helper()
	h := newTestHandlers(t, e)
	return h, NewRouter(h, nil)
}

func TestCalculateReturnsResult(t *testing.T) {
	stub := &stubEngine{result: &engine.Result{
		RequestID:  "req-1",
		CarbonKg:   1.234,
		Confidence: fusion.High,
	}}
	_, router := newTestRouter(t, stub)

	body := `{"activityType":"electricity","timestamp":"2026-05-01T12:00:00Z",` +
		`"location":{"country":"DE"},"metadata":{"kWhConsumed":10}}`
	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got engine.Result
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CarbonKg != 1.234 || got.RequestID != "req-1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if stub.calls != 1 {
		t.Fatalf("engine should run once, ran %d", stub.calls)
	}
}

func TestCalculateRejectsInvalidActivity(t *testing.T) {
	stub := &stubEngine{err: activity.ErrInvalid}
	_, router := newTestRouter(t, stub)

	body := `{"activityType":"electricity","timestamp":"2026-05-01T12:00:00Z","metadata":{"kWhConsumed":-3}}`
	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCalculateRejectsMalformedJSON(t *testing.T) {
	stub := &stubEngine{}
	_, router := newTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if stub.calls != 0 {
		t.Fatalf("malformed body must not reach the engine")
	}
}

func TestGetAuditRecordNotFound(t *testing.T) {
	_, router := newTestRouter(t, &stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/audit/records/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAuditQueryAndFetchRoundTrip(t *testing.T) {
	h, router := newTestRouter(t, &stubEngine{})
	id, err := h.Ledger.Append(context.Background(), &audit.Record{
		RequestID:    "req-9",
		Timestamp:    time.Now().UTC(),
		ActivityType: "electricity",
		Confidence:   "high",
		CarbonKg:     2.5,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/audit/records?requestId=req-9", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d", rr.Code)
	}
	var page audit.QueryResult
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalCount != 1 {
		t.Fatalf("expected one match, got %d", page.TotalCount)
	}

	req = httptest.NewRequest(http.MethodGet, "/audit/records/"+id, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("fetch: expected 200, got %d", rr.Code)
	}
}

func TestAuditQueryRejectsBadWindow(t *testing.T) {
	_, router := newTestRouter(t, &stubEngine{})
	req := httptest.NewRequest(http.MethodGet,
		"/audit/records?from=2026-05-02T00:00:00Z&to=2026-05-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("inverted window must be rejected, got %d", rr.Code)
	}
}

func TestMethodologyLifecycleOverHTTP(t *testing.T) {
	_, router := newTestRouter(t, &stubEngine{})

	// No versions yet.
	req := httptest.NewRequest(http.MethodGet, "/methodology/current", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty store: expected 404, got %d", rr.Code)
	}

	// Create the first version.
	body := `{"methodology":{"name":"conservative_weighted_fusion"},"author":"ops","version":"1.0.0"}`
	req = httptest.NewRequest(http.MethodPost, "/methodology/versions", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	// Duplicate version conflicts.
	req = httptest.NewRequest(http.MethodPost, "/methodology/versions", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rr.Code)
	}

	// Current resolves.
	req = httptest.NewRequest(http.MethodGet, "/methodology/current", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("current: expected 200, got %d", rr.Code)
	}
	var v audit.Version
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if v.Version != "1.0.0" {
		t.Fatalf("unexpected current version %q", v.Version)
	}

	// The only active version cannot be deprecated without a successor.
	req = httptest.NewRequest(http.MethodPost, "/methodology/versions/1.0.0/deprecate", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("deprecate without successor: expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
	req = httptest.NewRequest(http.MethodGet, "/methodology/current", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("current must survive the rejected deprecation, got %d", rr.Code)
	}

	// A superseding create retires 1.0.0; deprecating it again conflicts.
	body = `{"methodology":{"name":"conservative_weighted_fusion"},"author":"ops"}`
	req = httptest.NewRequest(http.MethodPost, "/methodology/versions", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create successor: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var v2 audit.Version
	if err := json.NewDecoder(rr.Body).Decode(&v2); err != nil {
		t.Fatalf("decode successor: %v", err)
	}
	if v2.Version != "1.0.1" {
		t.Fatalf("implicit create should bump patch, got %q", v2.Version)
	}
	req = httptest.NewRequest(http.MethodPost, "/methodology/versions/1.0.0/deprecate", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("re-deprecation: expected 409, got %d", rr.Code)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	h, router := newTestRouter(t, &stubEngine{})
	for i := 0; i < 3; i++ {
		if _, err := h.Ledger.Append(context.Background(), &audit.Record{
			RequestID:    "req",
			Timestamp:    time.Now().UTC(),
			ActivityType: "cloud_compute",
			Confidence:   "medium",
			CarbonKg:     1,
			Performance:  audit.PerformanceMetrics{DurationMs: float64(10 * (i + 1))},
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/audit/statistics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var stats audit.Statistics
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 3 || stats.ByType["cloud_compute"] != 3 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}
