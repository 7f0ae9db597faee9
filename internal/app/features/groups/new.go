// internal/app/features/groups/new.go
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

type createGroupInput struct {
	Name        string `validate:"required,max=100" label:"Group name"`
	Description string `validate:"max=2000" label:"Description"`
}

type newGroupData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Name        string
	Description string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /groups/new                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "group_new", newGroupData{
		BaseVM: viewdata.NewBaseVM(r, "Create a group", "/dashboard"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/new                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleNew creates a group with the current user as its manager and
// switches to it.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/new")
		return
	}
	userID, _ := auth.UserID(r)

	in := createGroupInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	reRender := func(msg string) {
		h.Render(w, r, "group_new", newGroupData{
			BaseVM:      viewdata.NewBaseVM(r, "Create a group", "/dashboard"),
			Error:       msg,
			Name:        in.Name,
			Description: in.Description,
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Backend.CreateGroup(ctx, userID, in.Name, in.Description)
	if err != nil {
		h.Log.Warn("create group failed", zap.String("user_id", userID), zap.Error(err))
		reRender("We couldn't create the group. Please try again.")
		return
	}
	h.AuditLog.GroupCreated(r.Context(), r, userID, m.GroupID, in.Name)

	role, err := roles.Parse(m.Role)
	if err != nil {
		role = roles.Manager
	}
	if _, err := h.activate(w, r, userID, m.GroupID, role); err != nil {
		h.ErrLog.LogServerError(w, r, "select new group", err,
			"Your group was created, but we couldn't open it. Pick it from the sidebar.", "/dashboard")
		return
	}

	redirect(w, r, "/group")
}
