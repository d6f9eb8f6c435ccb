// Package syncapi exposes the sync mode to the client: which data source a
// session is on, whether it can write, and the viewer's source switch.
package syncapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	"github.com/dalemusser/stratatrack/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
)

// Handler handles sync status and data-source requests.
type Handler struct {
	resolver    *syncer.Resolver
	coordinator *syncer.Coordinator
	logger      *zap.Logger
}

// NewHandler creates a syncapi handler. coordinator may be nil when the app
// runs without a live document backend.
func NewHandler(resolver *syncer.Resolver, coordinator *syncer.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{resolver: resolver, coordinator: coordinator, logger: logger}
}

// Routes returns a router with the sync endpoints.
//
// When mounted at /api/sync:
//   - GET  /api/sync/status - Session role, source, and effective mode
//   - POST /api/sync/source - Switch the viewer's data source
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Post("/source", h.SetSource)
	return r
}

// statusResponse is the GET /status payload.
type statusResponse struct {
	Role           syncer.Role       `json:"role"`
	Source         syncer.DataSource `json:"source"`
	Writable       bool              `json:"writable"`
	Publishes      bool              `json:"publishes"`
	LiveConfigured bool              `json:"liveConfigured"`
	LastRemoteHash string            `json:"lastRemoteHash,omitempty"`
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	mode := syncer.Resolve(u.Role, h.resolver.Choice(u.UID))
	resp := statusResponse{
		Role:           u.Role,
		Source:         mode.Source,
		Writable:       mode.Writable,
		Publishes:      mode.Publishes,
		LiveConfigured: h.coordinator != nil,
	}
	if h.coordinator != nil {
		resp.LastRemoteHash = h.coordinator.LastRemoteHash()
	}
	jsonutil.OK(w, resp)
}

// SetSource handles POST /source. Admin sessions are pinned to their own
// tracker and cannot switch.
//
// Request body:
//
//	{"source": "live"}
func (h *Handler) SetSource(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "no session")
		return
	}
	if u.Role == syncer.RoleAdmin {
		jsonutil.Forbidden(w, "admin sessions always use their own data")
		return
	}
	var in struct {
		Source syncer.DataSource `json:"source"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if !syncer.ValidSource(in.Source) {
		jsonutil.BadRequest(w, "source must be \"local\" or \"live\"")
		return
	}
	if in.Source == syncer.SourceLive && h.coordinator == nil {
		jsonutil.Error(w, http.StatusConflict, "no live document is configured")
		return
	}
	h.resolver.SetChoice(u.UID, in.Source)
	if in.Source == syncer.SourceLocal {
		// Coming back from live viewing, rehydrate the private tracker from
		// the local store so edits made outside this process (a restored
		// backup, another instance) are picked up.
		h.resolver.Manager.Reload(u.UID)
	}
	h.logger.Info("data source switched",
		zap.String("uid", u.UID),
		zap.String("source", string(in.Source)))

	mode := syncer.Resolve(u.Role, in.Source)
	jsonutil.OK(w, statusResponse{
		Role:           u.Role,
		Source:         mode.Source,
		Writable:       mode.Writable,
		Publishes:      mode.Publishes,
		LiveConfigured: h.coordinator != nil,
	})
}
