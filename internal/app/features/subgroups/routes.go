// internal/app/features/subgroups/routes.go
package subgroups

import (
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the section pages (typically at /subgroups). Creating a
// section needs moderator or better, re-checked against the backend.
func Routes(h *Handler, sm *auth.SessionManager, g *guards.Guards, rv *membership.Revalidator) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(g.RequireGroup)

		pr.Get("/", h.ServeList)

		pr.Group(func(mr chi.Router) {
			mr.Use(rv.Revalidate)
			mr.Use(g.RequireModerator)
			mr.Get("/new", h.ServeNew)
			mr.Post("/new", h.HandleNew)
		})
	})

	return r
}
