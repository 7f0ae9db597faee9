// internal/app/features/manage/handler.go
package manage

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

// API is the member-management part of the backend. *backend.Client
// satisfies it.
type API interface {
	GroupMembers(ctx context.Context, groupID int64, userID string) ([]models.Member, error)
	RemoveMember(ctx context.Context, groupID int64, requesterID string, memberID int64) error
	UpdateMemberRole(ctx context.Context, groupID, memberID int64, requesterID, role string) error
}

// Handler is the feature-level handler for the manager's member page.
type Handler struct {
	Backend  API
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Render   viewdata.Renderer
}

func NewHandler(api API, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:  api,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Render:   viewdata.Render,
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
