// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the activity log (typically at /activity). Managers only;
// membership is re-checked against the backend first.
func Routes(h *Handler, sm *auth.SessionManager, g *guards.Guards, rv *membership.Revalidator) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(g.RequireGroup)
		pr.Use(rv.Revalidate)
		pr.Use(g.RequireManager)

		pr.Get("/", h.ServeList)
	})

	return r
}
