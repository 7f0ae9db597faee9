// internal/app/features/groups/view.go
package groups

import (
	"context"
	"html/template"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
)

type groupViewData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Name        string
	Description template.HTML
	JoinCode    string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /group                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeGroup shows the current group. The join code is only drawn for
// managers; the backend also blanks it for everyone else.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()
	role, _ := gc.Role()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Backend.GroupInfo(ctx, groupID, userID)
	if err != nil {
		if h.Membership.Gone(w, r) {
			redirect(w, r, "/dashboard")
			return
		}
		h.ErrLog.LogServerError(w, r, "load group info", err, "We couldn't load this group. Please try again.", "/dashboard")
		return
	}

	data := groupViewData{
		BaseVM:      viewdata.NewBaseVM(r, g.Name, "/events"),
		Name:        g.Name,
		Description: htmlsanitize.PrepareForDisplay(g.Description),
	}
	if role.AtLeast(roles.Manager) {
		data.JoinCode = g.AccessToken
	}
	if query.Get(r, "done") == "refreshed" {
		data.Success = "New join code generated. The old code no longer works."
	}

	h.Render(w, r, "group_view", data)
}
