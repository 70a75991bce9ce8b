/*
handlers.go - HTTP API handlers for the analytics engine

PURPOSE:
  Exposes the report engine via REST. Handles HTTP request/response, query
  parsing, and delegates to the engine; all aggregation logic lives in the
  analytics package.

ENDPOINTS:
  Reports:
    GET  /api/reports                Build a report (start, end, split,
                                     refresh query params)
    GET  /api/reports/dates          Which dates in a range have data
    GET  /api/members/{id}           Per-member drill-down
    GET  /api/roster/coverage        Full roster mapped onto a window

  Operations:
    GET  /api/cache/stats            Live cache contents
    POST /api/cache/flush            Drop every cached window
    POST /api/demo/load              Seed the demo dataset
    GET  /api/health                 Liveness + store reachability

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid dates / split mode
  - 404: unknown member
  - 500: internal faults

SECURITY NOTE:
  No authentication middleware. Auth is out of scope for this engine and is
  expected at the gateway in front of it.

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldops/outreach-analytics/analytics"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// SeedStore is the write surface the demo loader needs. The sqlite store and
// the in-memory test store both provide it.
type SeedStore interface {
	PutDailySummary(ctx context.Context, s analytics.DailySummary) error
	PutMemberRecords(ctx context.Context, date analytics.DateKey, records []analytics.MemberDailyRecord) error
	PutMember(ctx context.Context, identity analytics.MemberIdentity) error
	PutZone(ctx context.Context, zone analytics.Zone) error
}

// Pinger is the optional store health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *analytics.Engine
	Seed   SeedStore
	Health Pinger
	Logger *zap.Logger
}

// NewHandler creates a handler around the engine. seed and health may be nil
// (the corresponding endpoints then report unavailable).
func NewHandler(engine *analytics.Engine, seed SeedStore, health Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Seed: seed, Health: health, Logger: logger}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// BuildReport builds the report for the requested range and split mode.
// GET /api/reports?start=2025-01-01&end=2025-01-31&split=day[&refresh=true]
func (h *Handler) BuildReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")

	mode := analytics.SplitMode(q.Get("split"))
	if mode == "" {
		mode = analytics.SplitCumulative
	}

	if q.Get("refresh") == "true" {
		if err := h.Engine.InvalidateRange(start, end, mode); err != nil {
			h.writeEngineError(w, err)
			return
		}
	}

	report, err := h.Engine.BuildReport(r.Context(), start, end, mode)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListDates returns the dates in a range that actually have data.
// GET /api/reports/dates?start=...&end=...
func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dates, err := h.Engine.ExistingDates(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DatesResponse{
		StartDate: q.Get("start"),
		EndDate:   q.Get("end"),
		Dates:     dates,
		Count:     len(dates),
	})
}

// GetMember returns one member's drill-down over a range.
// GET /api/members/{id}?start=...&end=...
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	report, err := h.Engine.MemberDrilldown(r.Context(), id, q.Get("start"), q.Get("end"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RosterCoverage maps the full roster onto a window's activity.
// GET /api/roster/coverage?start=...&end=...
func (h *Handler) RosterCoverage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coverage, err := h.Engine.RosterCoverage(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coverage)
}

// =============================================================================
// OPERATIONS HANDLERS
// =============================================================================

// CacheStats reports the live cache contents.
// GET /api/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CacheStatsResponse{Stats: h.Engine.CacheStats()})
}

// FlushCache drops every cached window.
// POST /api/cache/flush
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	removed := h.Engine.FlushCaches()
	h.Logger.Info("cache flushed", zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, CacheFlushResponse{Removed: removed})
}

// LoadDemo seeds the deterministic demo dataset.
// POST /api/demo/load
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	if h.Seed == nil {
		writeError(w, http.StatusServiceUnavailable, "Seeding not available", nil)
		return
	}
	result, err := LoadDemoData(r.Context(), h.Seed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load demo data", err)
		return
	}
	h.Engine.FlushCaches()
	writeJSON(w, http.StatusOK, result)
}

// HealthCheck reports liveness and store reachability.
// GET /api/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok"}
	if h.Health == nil {
		resp.Store = "unknown"
	} else if err := h.Health.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "Member not found", err)
	case analytics.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.Logger.Error("report request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Report generation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
