// internal/app/features/groups/select.go
package groups

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/navigation"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/{id}/select                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSelect switches the current group. The role comes from the
// backend's list of the user's groups, never from the form.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)

	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || groupID <= 0 {
		h.ErrLog.LogBadRequest(w, r, "bad group id", err, "That group does not exist.", "/dashboard")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.UserGroups(ctx, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user groups", err, "We couldn't switch groups. Please try again.", "/dashboard")
		return
	}

	var role roles.Role
	found := false
	for _, g := range list {
		if g.ID != groupID {
			continue
		}
		if parsed, err := roles.Parse(g.Role); err == nil {
			role, found = parsed, true
		}
		break
	}
	if !found {
		h.ErrLog.LogForbidden(w, r, "select group user is not in", nil, "You are not a member of that group.")
		return
	}

	if _, err := h.activate(w, r, userID, groupID, role); err != nil {
		h.ErrLog.LogServerError(w, r, "select group", err, "We couldn't switch groups. Please try again.", "/dashboard")
		return
	}

	dest := navigation.ReturnURL(r, navigation.AfterGroupSwitch)
	redirect(w, r, dest)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/clear                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleClear leaves the group view and returns to the dashboard.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)

	var groupID int64
	if gc, ok := groupctx.From(r); ok {
		groupID, _ = gc.GroupID()
		if err := gc.ClearGroup(); err != nil {
			h.Log.Warn("clear group selection", zap.Error(err))
		}
	}

	if _, _, err := h.SessionMgr.RefreshClaims(w, r, auth.ClearGroup()); err != nil {
		// The cache is already empty; guards read the cache, so the stale
		// claim only lives until the next refresh or sign-in.
		h.AuditLog.ClaimRefreshFailed(r.Context(), r, userID, err)
	}

	if groupID != 0 {
		h.AuditLog.GroupCleared(r.Context(), r, userID, groupID, "user")
	}
	redirect(w, r, "/dashboard")
}
