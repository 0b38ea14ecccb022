// v1
// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/nksrentas/ecotrace/internal/activity"
	"github.com/nksrentas/ecotrace/internal/audit"
	"github.com/nksrentas/ecotrace/internal/cache"
	"github.com/nksrentas/ecotrace/internal/engine"
)

type calculator interface {
	Calculate(context.Context, activity.Record) (*engine.Result, error)
}

type Handlers struct {
	Log     *slog.Logger
	Engine  calculator
	Ledger  *audit.Ledger
	Methods *audit.MethodologyStore

	AuditCache  *cache.Cache[*audit.Record]
	MethodCache *cache.Cache[*audit.Version]
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Calculate runs one carbon calculation. The request body is an activity
// record; metadata shape is dispatched on activityType during decoding.
func (h *Handlers) Calculate(w http.ResponseWriter, r *http.Request) {
	var rec activity.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		badRequest(w, "invalid activity payload: "+err.Error())
		return
	}
	result, err := h.Engine.Calculate(r.Context(), rec)
	if err != nil {
		switch {
		case errors.Is(err, activity.ErrInvalid):
			badRequest(w, err.Error())
		case errors.Is(err, engine.ErrCalculationUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		default:
			h.Log.Error("calculation failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}
	if result.PersistErr != nil {
		h.Log.Warn("audit persistence failed", "requestId", result.RequestID, "error", result.PersistErr)
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetAuditRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	key := cache.AuditKey(id)
	if h.AuditCache != nil {
		if rec, ok := h.AuditCache.Get(key); ok {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	rec, err := h.Ledger.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "audit record not found"})
		return
	}
	if h.AuditCache != nil {
		h.AuditCache.Set(key, rec)
	}
	writeJSON(w, http.StatusOK, rec)
}

// QueryAuditRecords filters the ledger. All parameters are optional; results
// are newest first with offset/limit pagination.
func (h *Handlers) QueryAuditRecords(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	f := audit.Filter{
		RequestID:    qs.Get("requestId"),
		ActivityType: qs.Get("activityType"),
		UserID:       qs.Get("userId"),
		Confidence:   qs.Get("confidence"),
	}
	if v := qs.Get("minCarbonKg"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			badRequest(w, "invalid minCarbonKg")
			return
		}
		f.MinCarbonKg = &min
	}
	if v := qs.Get("maxCarbonKg"); v != "" {
		max, err := strconv.ParseFloat(v, 64)
		if err != nil {
			badRequest(w, "invalid maxCarbonKg")
			return
		}
		f.MaxCarbonKg = &max
	}
	var err error
	if f.From, f.To, err = parseWindow(qs.Get("from"), qs.Get("to")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if v := qs.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			badRequest(w, "offset must be a non-negative integer")
			return
		}
	}
	if v := qs.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
	}
	writeJSON(w, http.StatusOK, h.Ledger.Query(f))
}

func (h *Handlers) AuditStatistics(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	from, to, err := parseWindow(qs.Get("from"), qs.Get("to"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.Stats(from, to))
}

func (h *Handlers) CurrentMethodology(w http.ResponseWriter, _ *http.Request) {
	v, err := h.Methods.Current()
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) GetMethodology(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]
	key := cache.MethodologyKey(version)
	if h.MethodCache != nil {
		if v, ok := h.MethodCache.Get(key); ok {
			writeJSON(w, http.StatusOK, v)
			return
		}
	}
	v, err := h.Methods.Get(version)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if h.MethodCache != nil {
		h.MethodCache.Set(key, v)
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) ListMethodologies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Methods.List())
}

type createMethodologyRequest struct {
	Methodology audit.Methodology `json:"methodology"`
	Changes     []string          `json:"changes,omitempty"`
	Author      string            `json:"author"`
	Version     string            `json:"version,omitempty"` // explicit semver; empty bumps patch
}

func (h *Handlers) CreateMethodology(w http.ResponseWriter, r *http.Request) {
	var req createMethodologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid methodology payload: "+err.Error())
		return
	}
	if req.Methodology.Name == "" {
		badRequest(w, "methodology name is required")
		return
	}
	v, err := h.Methods.Create(req.Methodology, req.Changes, req.Author, req.Version)
	if err != nil {
		if errors.Is(err, audit.ErrVersionExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type deprecateRequest struct {
	SupersededBy string `json:"supersededBy,omitempty"`
}

func (h *Handlers) DeprecateMethodology(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]
	var req deprecateRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.Methods.Deprecate(version, req.SupersededBy); err != nil {
		switch {
		case errors.Is(err, audit.ErrVersionNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, audit.ErrVersionDeprecated), errors.Is(err, audit.ErrActiveWithoutSuccessor):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			badRequest(w, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deprecated", "version": version})
}

func parseWindow(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return from, to, errors.New("from must be RFC3339")
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return from, to, errors.New("to must be RFC3339")
		}
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return from, to, errors.New("from must be before to")
	}
	return from, to, nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
