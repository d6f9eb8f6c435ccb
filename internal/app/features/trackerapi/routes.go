package trackerapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the tracker API endpoints.
//
// When mounted at /api/tracker:
//   - GET    /api/tracker/bundle                    - Full state snapshot
//   - GET    /api/tracker/day/{day}                 - Derived day view
//   - PUT    /api/tracker/day/{day}/slot            - Set a half-hour slot
//   - PUT    /api/tracker/day/{day}/reason          - Set an hour's wasted reason
//   - PUT    /api/tracker/day/{day}/total           - Set a manual daily total
//   - POST   /api/tracker/day/{day}/patterns        - Add a manual wasted pattern
//   - DELETE /api/tracker/day/{day}/patterns/{index} - Remove a wasted pattern
//   - PUT    /api/tracker/day/{day}/reflection      - Set the day's reflection
//   - GET    /api/tracker/export                    - Download the state as JSON
//   - POST   /api/tracker/import                    - Replace the state from JSON
//
// Authentication is via the session cookie; the identity middleware runs
// earlier in the chain.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/bundle", h.GetBundle)
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	r.Route("/day/{day}", func(dr chi.Router) {
		dr.Get("/", h.GetDay)
		dr.Put("/slot", h.SetSlot)
		dr.Put("/reason", h.SetReason)
		dr.Put("/total", h.SetTotal)
		dr.Post("/patterns", h.AddPattern)
		dr.Delete("/patterns/{index}", h.RemovePattern)
		dr.Put("/reflection", h.SetReflection)
	})

	return r
}
