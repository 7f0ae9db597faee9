// internal/app/features/subgroups/handler.go
package subgroups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

// API is the section part of the backend. *backend.Client satisfies it.
type API interface {
	GroupSubgroups(ctx context.Context, groupID int64, userID string) ([]models.Subgroup, error)
	CreateSubgroup(ctx context.Context, userID string, groupID int64, name, description string) (models.Subgroup, error)
	AddSubgroupMembers(ctx context.Context, subgroupID int64, userID string, memberIDs []int64) error
	GroupMembers(ctx context.Context, groupID int64, userID string) ([]models.Member, error)
}

// Handler serves the sections (subgroups) of the selected group.
type Handler struct {
	Backend    API
	Membership *membership.Revalidator
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Render     viewdata.Renderer
}

func NewHandler(api API, rv *membership.Revalidator, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:    api,
		Membership: rv,
		Log:        logger,
		ErrLog:     errLog,
		AuditLog:   audit,
		Render:     viewdata.Render,
	}
}

func redirect(w http.ResponseWriter, r *http.Request, dest string) {
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// failLoad answers a failed group-scoped fetch. A user the backend no
// longer lists in the group goes back to the dashboard with the selection
// cleared; anything else is a server error.
func (h *Handler) failLoad(w http.ResponseWriter, r *http.Request, what string, err error, msg, back string) {
	if h.Membership.Gone(w, r) {
		redirect(w, r, "/dashboard")
		return
	}
	h.ErrLog.LogServerError(w, r, what, err, msg, back)
}
