// Package adminapi exposes operational endpoints reserved for the admin
// identity: inspecting the scheduled background jobs and running one on
// demand (backups before a risky change, pruning after a disk alert).
package adminapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatrack/internal/app/system/tasks"
)

// Handler handles admin-only operational requests.
type Handler struct {
	runner *tasks.Runner
	logger *zap.Logger
}

// NewHandler creates an adminapi handler.
func NewHandler(runner *tasks.Runner, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// Routes returns a router with the admin endpoints. requireAdmin guards the
// whole group; callers pass the session manager's middleware.
//
// When mounted at /api/admin:
//   - GET  /api/admin/jobs            - Registered background jobs
//   - POST /api/admin/jobs/{name}/run - Run one job immediately
func Routes(h *Handler, requireAdmin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requireAdmin)
	r.Get("/jobs", h.ListJobs)
	r.Post("/jobs/{name}/run", h.RunJob)
	return r
}

// ListJobs handles GET /jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string][]string{"jobs": h.runner.Names()})
}

// RunJob handles POST /jobs/{name}/run.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.runner.RunOnce(r.Context(), name)
	switch {
	case errors.Is(err, tasks.ErrUnknownJob):
		jsonutil.Error(w, http.StatusNotFound, "no such job")
	case err != nil:
		h.logger.Error("manual job run failed",
			zap.String("job", name), zap.Error(err))
		jsonutil.InternalError(w, "job failed")
	default:
		h.logger.Info("job run on demand", zap.String("job", name))
		jsonutil.OK(w, map[string]string{"job": name, "status": "completed"})
	}
}
