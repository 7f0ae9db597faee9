// internal/app/features/manage/actions.go
package manage

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type roleChangeInput struct {
	Role string `validate:"required,role" label:"Role"`
}

// target resolves the acting user, the current group and the member id
// from the URL. ok is false when a response has already been written.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (userID string, groupID, memberID int64, ok bool) {
	userID, _ = auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ = gc.GroupID()

	memberID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || memberID <= 0 {
		h.ErrLog.LogBadRequest(w, r, "bad member id", err, "That member does not exist.", "/manage")
		return "", 0, 0, false
	}
	if strconv.FormatInt(memberID, 10) == userID {
		h.ErrLog.LogBadRequest(w, r, "manager acted on self", nil, "You can't change your own membership here.", "/manage")
		return "", 0, 0, false
	}
	return userID, groupID, memberID, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /manage/members/{id}/role                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/manage")
		return
	}
	userID, groupID, memberID, ok := h.target(w, r)
	if !ok {
		return
	}

	in := roleChangeInput{Role: r.FormValue("role")}
	if result := inputval.Validate(in); result.HasErrors() {
		h.ErrLog.LogBadRequest(w, r, "bad role", nil, result.First(), "/manage")
		return
	}
	role, _ := roles.Parse(in.Role)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Backend.UpdateMemberRole(ctx, groupID, memberID, userID, role.String()); err != nil {
		h.ErrLog.LogServerError(w, r, "update member role", err, "We couldn't change that member's role.", "/manage")
		return
	}

	h.AuditLog.MemberRoleChanged(r.Context(), r, userID, strconv.FormatInt(memberID, 10), groupID, role)
	h.Log.Info("member role changed",
		zap.Int64("group_id", groupID), zap.Int64("member_id", memberID), zap.String("role", role.String()))
	redirect(w, r, "/manage?done=role")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /manage/members/{id}/remove                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, groupID, memberID, ok := h.target(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Backend.RemoveMember(ctx, groupID, userID, memberID); err != nil {
		h.ErrLog.LogServerError(w, r, "remove member", err, "We couldn't remove that member.", "/manage")
		return
	}

	h.AuditLog.MemberRemoved(r.Context(), r, userID, strconv.FormatInt(memberID, 10), groupID)
	redirect(w, r, "/manage?done=removed")
}
