// internal/app/features/groups/join.go
package groups

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
)

type joinGroupInput struct {
	Code string `validate:"required,max=64" label:"Join code"`
}

type joinGroupData struct {
	viewdata.BaseVM
	Error   string
	Success string
	Code    string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /groups/join                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "group_join", joinGroupData{
		BaseVM: viewdata.NewBaseVM(r, "Join a group", "/dashboard"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/join                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleJoin redeems a join code and switches to the joined group.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/join")
		return
	}
	userID, _ := auth.UserID(r)

	in := joinGroupInput{Code: strings.TrimSpace(r.FormValue("code"))}
	reRender := func(msg string) {
		h.Render(w, r, "group_join", joinGroupData{
			BaseVM: viewdata.NewBaseVM(r, "Join a group", "/dashboard"),
			Error:  msg,
			Code:   in.Code,
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Backend.JoinGroup(ctx, userID, in.Code)
	if err != nil {
		h.Log.Info("join group failed", zap.String("user_id", userID), zap.Error(err))
		reRender("That join code didn't match any group.")
		return
	}
	h.AuditLog.GroupJoined(r.Context(), r, userID, m.GroupID)

	role, err := roles.Parse(m.Role)
	if err != nil {
		role = roles.Member
	}
	if _, err := h.activate(w, r, userID, m.GroupID, role); err != nil {
		h.ErrLog.LogServerError(w, r, "select joined group", err,
			"You joined the group, but we couldn't open it. Pick it from the sidebar.", "/dashboard")
		return
	}

	redirect(w, r, "/events")
}
