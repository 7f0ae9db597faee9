// internal/app/features/tracks/routes.go
package tracks

import (
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the repertoire (typically at /tracks).
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

		pr.Get("/{id}", h.ServeDetail)
	})

	return r
}
