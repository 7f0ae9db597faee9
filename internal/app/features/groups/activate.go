// internal/app/features/groups/activate.go
package groups

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"go.uber.org/zap"
)

var errNoGroupContext = errors.New("request has no group context")

// activate makes groupID the current group with role: the cookie cache
// first, then the identity token. If the token cannot be refreshed the
// previous selection is put back, so the cache and the token never
// disagree about which group is current.
func (h *Handler) activate(w http.ResponseWriter, r *http.Request, userID string, groupID int64, role roles.Role) (*http.Request, error) {
	gc, ok := groupctx.From(r)
	if !ok {
		return r, errNoGroupContext
	}
	prev := gc.Selection()

	if err := gc.SelectGroup(groupID, role); err != nil {
		return r, err
	}

	r2, _, err := h.SessionMgr.RefreshClaims(w, r, auth.SetGroup(groupID, role))
	if err != nil {
		h.AuditLog.ClaimRefreshFailed(r.Context(), r, userID, err)
		if rbErr := restore(gc, prev); rbErr != nil {
			h.Log.Error("restore group selection after failed refresh",
				zap.Int64("group_id", groupID), zap.Error(rbErr))
		}
		return r, fmt.Errorf("refresh claims: %w", err)
	}

	h.AuditLog.GroupSelected(r.Context(), r, userID, groupID, role)
	return r2, nil
}

func restore(gc *groupctx.Context, prev groupctx.Selection) error {
	if id, ok := prev.Group(); ok && prev.Role.Valid() {
		return gc.SelectGroup(id, prev.Role)
	}
	return gc.ClearGroup()
}
