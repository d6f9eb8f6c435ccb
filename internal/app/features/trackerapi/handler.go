// Package trackerapi is the JSON API for the activity tracker: grid slot
// and wasted-reason edits, manual totals, patterns, reflections, day views,
// and whole-bundle export/import.
//
// Every request resolves an effective tracker from the session identity and
// the viewer's data-source choice: admins and local-mode viewers get their
// own writable tracker, live-mode viewers get the read-only mirror of the
// shared document. Mutations against the mirror fail with 403.
package trackerapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	"github.com/dalemusser/stratatrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatrack/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
	"github.com/dalemusser/stratatrack/internal/app/system/tracker"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// maxImportSize caps import payloads.
const maxImportSize = 4 << 20

// Handler handles tracker API requests.
type Handler struct {
	resolver *syncer.Resolver
	logger   *zap.Logger
}

// NewHandler creates a trackerapi handler.
func NewHandler(resolver *syncer.Resolver, logger *zap.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// trackerFor resolves the effective tracker and mode for the request's
// identity.
func (h *Handler) trackerFor(r *http.Request) (*tracker.Tracker, syncer.Mode, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, syncer.Mode{}, false
	}
	t, mode := h.resolver.For(u.UID, u.Role)
	return t, mode, true
}

// dayParam parses and validates the {day} URL parameter.
func dayParam(r *http.Request) (timegrid.DayKey, error) {
	return timegrid.ParseDayKey(chi.URLParam(r, "day"))
}

// writeTrackerError maps tracker sentinel errors onto HTTP statuses.
func writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrReadOnly):
		jsonutil.Forbidden(w, err.Error())
	case errors.Is(err, tracker.ErrPastDay),
		errors.Is(err, tracker.ErrGridDerived):
		jsonutil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrInvalidImport):
		jsonutil.BadRequest(w, err.Error())
	default:
		jsonutil.BadRequest(w, err.Error())
	}
}

// GetBundle handles GET /bundle. It returns the full state snapshot.
func (h *Handler) GetBundle(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	jsonutil.OK(w, t.Snapshot())
}

// GetDay handles GET /day/{day}. It returns the derived day view.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// SetSlot handles PUT /day/{day}/slot.
//
// Request body:
//
//	{"hour": 7, "half": "first", "value": "MISC-BREAKFAST"}
func (h *Handler) SetSlot(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Hour  int           `json:"hour"`
		Half  timegrid.Half `json:"half"`
		Value string        `json:"value"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := t.SetHalfSlot(day, in.Hour, in.Half, in.Value); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// SetReason handles PUT /day/{day}/reason.
//
// Request body:
//
//	{"hour": 7, "reason": "doomscrolling"}
func (h *Handler) SetReason(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Hour   int    `json:"hour"`
		Reason string `json:"reason"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := t.SetWastedReason(day, in.Hour, htmlsanitize.Label(in.Reason)); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// SetTotal handles PUT /day/{day}/total for days tracked without a grid.
//
// Request body:
//
//	{"kind": "study", "value": 4.5}
func (h *Handler) SetTotal(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Kind  tracker.TotalKind `json:"kind"`
		Value float64           `json:"value"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := t.SetManualTotal(day, in.Kind, in.Value); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// AddPattern handles POST /day/{day}/patterns.
func (h *Handler) AddPattern(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Text string `json:"text"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	text := htmlsanitize.Label(in.Text)
	if text == "" {
		jsonutil.BadRequest(w, "pattern text is empty")
		return
	}
	if err := t.AddPattern(day, text); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// RemovePattern handles DELETE /day/{day}/patterns/{index}.
func (h *Handler) RemovePattern(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid pattern index")
		return
	}
	if err := t.RemovePattern(day, index); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// SetReflection handles PUT /day/{day}/reflection. An empty text clears it.
func (h *Handler) SetReflection(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	day, err := dayParam(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	var in struct {
		Text string `json:"text"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := t.SetReflection(day, htmlsanitize.Text(in.Text)); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Day(day))
}

// Export handles GET /export. It streams the bundle as a download with the
// same timestamped filename scheme the browser app used.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	data, err := t.Export()
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		jsonutil.InternalError(w, "export failed")
		return
	}
	name := fmt.Sprintf("time-tracker-backup-%d.json", time.Now().UnixMilli())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(data)
}

// Import handles POST /import. The body is a full bundle document; either
// it replaces the whole state or nothing changes.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.trackerFor(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize+1))
	if err != nil {
		jsonutil.BadRequest(w, "failed to read body")
		return
	}
	if len(data) > maxImportSize {
		jsonutil.Error(w, http.StatusRequestEntityTooLarge, "import document too large")
		return
	}
	if err := t.Import(data); err != nil {
		writeTrackerError(w, err)
		return
	}
	jsonutil.OK(w, t.Snapshot())
}
