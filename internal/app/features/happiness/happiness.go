// Package happiness is the JSON API over the daily happiness checklist.
package happiness

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	hap "github.com/dalemusser/stratatrack/internal/app/system/happiness"
	"github.com/dalemusser/stratatrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatrack/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// Handler handles happiness checklist API requests.
type Handler struct {
	manager *hap.Manager
	logger  *zap.Logger
}

// NewHandler creates a happiness handler.
func NewHandler(manager *hap.Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Routes returns a router with the checklist endpoints.
//
// When mounted at /api/happiness:
//   - GET  /api/happiness/items              - Checklist item labels
//   - PUT  /api/happiness/items              - Replace the item labels
//   - GET  /api/happiness/day/{day}          - A day's checked flags
//   - PUT  /api/happiness/day/{day}          - Replace a day's checked flags
//   - POST /api/happiness/day/{day}/toggle   - Flip one item's flag
//   - GET  /api/happiness/summary            - Per-item all-time check counts
//
// Checklists are per-account and private.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/items", h.GetItems)
	r.Put("/items", h.SetItems)
	r.Get("/summary", h.Summary)
	r.Route("/day/{day}", func(dr chi.Router) {
		dr.Get("/", h.GetStatus)
		dr.Put("/", h.SetStatus)
		dr.Post("/toggle", h.Toggle)
	})
	return r
}

func (h *Handler) trackerFor(w http.ResponseWriter, r *http.Request) (*hap.Tracker, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return nil, false
	}
	return h.manager.Get(u.UID), true
}

func dayParam(r *http.Request) (timegrid.DayKey, error) {
	return timegrid.ParseDayKey(chi.URLParam(r, "day"))
}

func writeHappinessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hap.ErrTooManyItems),
		errors.Is(err, hap.ErrStatusMismatch):
		jsonutil.BadRequest(w, err.Error())
	default:
		jsonutil.BadRequest(w, err.Error())
	}
}

// GetItems handles GET /items.
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trackerFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, t.Items())
}

// SetItems handles PUT /items. Blank labels are dropped; existing day
// statuses are realigned to the new item count.
func (h *Handler) SetItems(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trackerFor(w, r)
	if !ok {
		return
	}
	var in struct {
		Items []string `json:"items"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	items := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, htmlsanitize.Label(it))
	}
	if err := t.SetItems(items); err != nil {
		writeHappinessError(w, err)
		return
	}
	jsonutil.OK(w, t.Items())
}

// GetStatus handles GET /day/{day}.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trackerFor(w, r)
	if !ok {
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	jsonutil.OK(w, t.Status(day))
}

// SetStatus handles PUT /day/{day}. The flag vector length must match the
// current item count.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trackerFor(w, r)
	if !ok {
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Checked []bool `json:"checked"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := t.SetStatus(day, in.Checked); err != nil {
		writeHappinessError(w, err)
		return
	}
	jsonutil.OK(w, t.Status(day))
}

// Toggle handles POST /day/{day}/toggle.
//
// Request body:
//
//	{"index": 2}
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trackerFor(w, r)
	if !ok {
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Index int `json:"index"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	checked, err := t.Toggle(day, in.Index)
	if err != nil {
		writeHappinessError(w, err)
		return
	}
	jsonutil.OK(w, checked)
}

// Summary handles GET /summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trackerFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, t.Summary())
}
