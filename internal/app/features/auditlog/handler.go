// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

// Querier reads the audit trail. *audit.Store satisfies it.
type Querier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// MemberLister resolves user ids to names. *backend.Client satisfies it.
type MemberLister interface {
	GroupMembers(ctx context.Context, groupID int64, userID string) ([]models.Member, error)
}

// Handler serves the group activity log to managers.
type Handler struct {
	Store   Querier // nil when audit storage is off
	Members MemberLister
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Render  viewdata.Renderer
}

// NewHandler constructs the activity log handler. store may be nil.
func NewHandler(store Querier, members MemberLister, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:   store,
		Members: members,
		Log:     logger,
		ErrLog:  errLog,
		Render:  viewdata.Render,
	}
}
