// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the group-switching endpoints (typically at /groups).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/{id}/select", h.HandleSelect)
		pr.Post("/clear", h.HandleClear)

		pr.Get("/new", h.ServeNew)
		pr.Post("/new", h.HandleNew)

		pr.Get("/join", h.ServeJoin)
		pr.Post("/join", h.HandleJoin)
	})

	return r
}

// GroupRoutes mounts the current group's page (typically at /group).
// Replacing the join code is for managers confirmed by the backend.
func GroupRoutes(h *Handler, sm *auth.SessionManager, g *guards.Guards, rv *membership.Revalidator) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(g.RequireGroup)
		pr.Get("/", h.ServeGroup)

		pr.Group(func(mr chi.Router) {
			mr.Use(rv.Revalidate)
			mr.Use(g.RequireManager)
			mr.Post("/refresh-code", h.HandleRefreshCode)
		})
	})

	return r
}
