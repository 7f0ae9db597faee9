// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

// API is the part of the backend this feature calls. *backend.Client
// satisfies it.
type API interface {
	UserGroups(ctx context.Context, userID string) ([]models.GroupSummary, error)
	GroupInfo(ctx context.Context, groupID int64, userID string) (models.Group, error)
	CreateGroup(ctx context.Context, userID, name, description string) (models.Membership, error)
	JoinGroup(ctx context.Context, userID, accessToken string) (models.Membership, error)
	RefreshJoinCode(ctx context.Context, groupID int64, userID string) (string, error)
}

// Handler is the shared dependency container for the groups feature:
// selecting and clearing the current group, creating and joining groups,
// and the current group's page.
type Handler struct {
	Backend    API
	SessionMgr *auth.SessionManager
	Membership *membership.Revalidator
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
	Render     viewdata.Renderer
}

// NewHandler constructs a new groups Handler. It is typically called
// from the bootstrap BuildHandler function.
func NewHandler(api API, sessionMgr *auth.SessionManager, rv *membership.Revalidator, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:    api,
		SessionMgr: sessionMgr,
		Membership: rv,
		ErrLog:     errLog,
		AuditLog:   audit,
		Log:        logger,
		Render:     viewdata.Render,
	}
}

// redirect sends the browser to dest, using HX-Redirect for HTMX requests.
func redirect(w http.ResponseWriter, r *http.Request, dest string) {
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
