// Package reports serves the derived report views: weekly buckets for a
// month, monthly and yearly rollups, and the all-time wasted-pattern
// analysis. Reports are computed on demand from the effective tracker's
// snapshot, so viewers in live mode see reports over the shared document.
package reports

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	"github.com/dalemusser/stratatrack/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// Handler handles report API requests.
type Handler struct {
	resolver *syncer.Resolver
	logger   *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(resolver *syncer.Resolver, logger *zap.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// Routes returns a router with the report endpoints.
//
// When mounted at /api/reports:
//   - GET /api/reports/weekly/{year}/{month}  - Per-week buckets for a month
//   - GET /api/reports/monthly/{year}/{month} - Monthly totals and averages
//   - GET /api/reports/yearly/{year}          - Twelve monthly rollups
//   - GET /api/reports/patterns               - All-time wasted-pattern counts
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/weekly/{year}/{month}", h.Weekly)
	r.Get("/monthly/{year}/{month}", h.Monthly)
	r.Get("/yearly/{year}", h.Yearly)
	r.Get("/patterns", h.Patterns)
	return r
}

func (h *Handler) bundleFor(w http.ResponseWriter, r *http.Request) (timegrid.Bundle, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return timegrid.Bundle{}, false
	}
	t, _ := h.resolver.For(u.UID, u.Role)
	return t.Snapshot(), true
}

// yearMonthParams parses the {year} and {month} URL parameters.
func yearMonthParams(r *http.Request) (int, time.Month, error) {
	year, err := yearParam(r)
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || m < 1 || m > 12 {
		return 0, 0, errBadMonth
	}
	return year, time.Month(m), nil
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1970 || year > 9999 {
		return 0, errBadYear
	}
	return year, nil
}

type paramError string

func (e paramError) Error() string { return string(e) }

const (
	errBadYear  paramError = "year must be a four-digit number"
	errBadMonth paramError = "month must be between 1 and 12"
)

// Weekly handles GET /weekly/{year}/{month}.
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundleFor(w, r)
	if !ok {
		return
	}
	year, month, err := yearMonthParams(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	jsonutil.OK(w, timegrid.WeeklyReport(year, month, b.Daily))
}

// Monthly handles GET /monthly/{year}/{month}.
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundleFor(w, r)
	if !ok {
		return
	}
	year, month, err := yearMonthParams(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	jsonutil.OK(w, timegrid.MonthlyReport(year, month, b.Daily))
}

// Yearly handles GET /yearly/{year}.
func (h *Handler) Yearly(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundleFor(w, r)
	if !ok {
		return
	}
	year, err := yearParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	jsonutil.OK(w, timegrid.YearlyReport(year, b.Daily))
}

// Patterns handles GET /patterns.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundleFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, timegrid.PatternAnalysis(b.Patterns))
}
