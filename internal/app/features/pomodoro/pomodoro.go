// Package pomodoro is the JSON API over each account's countdown timer.
package pomodoro

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	"github.com/dalemusser/stratatrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatrack/internal/app/system/jsonutil"
	pomo "github.com/dalemusser/stratatrack/internal/app/system/pomodoro"
)

// Handler handles pomodoro timer API requests.
type Handler struct {
	manager *pomo.Manager
	logger  *zap.Logger
}

// NewHandler creates a pomodoro handler.
func NewHandler(manager *pomo.Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Routes returns a router with the timer endpoints.
//
// When mounted at /api/pomodoro:
//   - GET  /api/pomodoro        - Current timer state
//   - POST /api/pomodoro/start  - Start with a duration and optional task
//   - POST /api/pomodoro/toggle - Pause or resume
//   - POST /api/pomodoro/reset  - Clear the timer
//
// Timers are per-account and private; live mode does not apply here.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.GetState)
	r.Post("/start", h.Start)
	r.Post("/toggle", h.Toggle)
	r.Post("/reset", h.Reset)
	return r
}

func (h *Handler) timerFor(w http.ResponseWriter, r *http.Request) (*pomo.Timer, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return nil, false
	}
	return h.manager.Get(u.UID), true
}

// GetState handles GET /.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	t, ok := h.timerFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, t.Snapshot())
}

// Start handles POST /start.
//
// Request body:
//
//	{"hours": 0, "minutes": 25, "task": "deep work"}
//
// Durations are clamped to the timer's limits; a zero duration resets.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	t, ok := h.timerFor(w, r)
	if !ok {
		return
	}
	var in struct {
		Hours   int    `json:"hours"`
		Minutes int    `json:"minutes"`
		Task    string `json:"task"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	jsonutil.OK(w, t.Start(in.Hours, in.Minutes, htmlsanitize.Label(in.Task)))
}

// Toggle handles POST /toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, ok := h.timerFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, t.TogglePause())
}

// Reset handles POST /reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	t, ok := h.timerFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, t.Reset())
}
