// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

// GroupLister lists a user's groups. *backend.Client satisfies it.
type GroupLister interface {
	UserGroups(ctx context.Context, userID string) ([]models.GroupSummary, error)
}

type Handler struct {
	Groups GroupLister
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
	Render viewdata.Renderer
}

func NewHandler(groups GroupLister, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups: groups,
		ErrLog: errLog,
		Log:    logger,
		Render: viewdata.Render,
	}
}

type dashboardData struct {
	viewdata.BaseVM
	Error   string
	Success string
}

// ServeDashboard is the landing page for a signed-in user with no group
// selected: the group list plus create and join actions. The guard in
// Routes sends users who already picked a group to the group home.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Groups.UserGroups(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user groups", err, "We couldn't load your groups. Please try again.", "/dashboard")
		return
	}

	vm := viewdata.NewPlainVM(r, "Dashboard", "/dashboard")
	vm.Groups = viewdata.GroupList(list, 0)

	h.Render(w, r, "dashboard", dashboardData{BaseVM: vm})
}
