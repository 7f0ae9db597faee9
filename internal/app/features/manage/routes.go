// internal/app/features/manage/routes.go
package manage

import (
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the manager pages (typically at /manage). Membership is
// re-checked against the backend before the role guard, so a manager who
// was demoted or removed elsewhere gets the fallback instead of the page.
func Routes(h *Handler, sm *auth.SessionManager, g *guards.Guards, rv *membership.Revalidator) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(g.RequireGroup)
		pr.Use(rv.Revalidate)
		pr.Use(g.RequireManager)

		pr.Get("/", h.ServeManage)
		pr.Post("/members/{id}/role", h.HandleRole)
		pr.Post("/members/{id}/remove", h.HandleRemove)
	})

	return r
}
