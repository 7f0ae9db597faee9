// internal/app/features/tracks/handler.go
package tracks

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

// API is the repertoire part of the backend. *backend.Client satisfies it.
type API interface {
	GroupTracks(ctx context.Context, groupID int64, userID string) ([]models.Track, error)
	CreateTrack(ctx context.Context, userID string, groupID int64, title, description string) (models.Track, error)
	TrackNotesheets(ctx context.Context, trackID int64, userID string) ([]models.Notesheet, error)
}

// Handler serves the repertoire of the selected group.
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

func (h *Handler) failLoad(w http.ResponseWriter, r *http.Request, what string, err error, msg, back string) {
	if h.Membership.Gone(w, r) {
		redirect(w, r, "/dashboard")
		return
	}
	h.ErrLog.LogServerError(w, r, what, err, msg, back)
}
