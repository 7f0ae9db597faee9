// internal/app/features/groups/joincode.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /group/refresh-code                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRefreshCode replaces the group's join code. Anyone holding the old
// code can no longer join with it.
func (h *Handler) HandleRefreshCode(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Backend.RefreshJoinCode(ctx, groupID, userID); err != nil {
		h.Log.Warn("refresh join code failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		h.ErrLog.LogServerError(w, r, "refresh join code", err, "We couldn't generate a new join code. Please try again.", "/group")
		return
	}

	h.AuditLog.JoinCodeRefreshed(r.Context(), r, userID, groupID)
	redirect(w, r, "/group?done=refreshed")
}
