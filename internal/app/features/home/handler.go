package home

import (
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Log    *zap.Logger
	Render viewdata.Renderer
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		Render: viewdata.Render,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot renders the public landing page. Signed-in visitors never reach
// it; the session gate sends them to /dashboard.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	data := struct {
		viewdata.BaseVM
	}{
		BaseVM: viewdata.NewPlainVM(r, "Welcome", "/"),
	}

	h.Render(w, r, "home", data)
}
