// internal/app/features/manage/list.go
package manage

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
)

type memberRow struct {
	ID        int64
	Name      string
	Email     string
	Role      string
	RoleLabel string
	IsSelf    bool
}

type roleOption struct {
	Value string
	Label string
}

type manageData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Members     []memberRow
	RoleOptions []roleOption
}

var doneMessages = map[string]string{
	"role":    "Role updated.",
	"removed": "Member removed.",
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /manage                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeManage lists the members of the current group. Managers first, then
// moderators, then members; alphabetical within a role.
func (h *Handler) ServeManage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	members, err := h.Backend.GroupMembers(ctx, groupID, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load group members", err, "We couldn't load the member list. Please try again.", "/events")
		return
	}

	rows := make([]memberRow, 0, len(members))
	for _, m := range members {
		role, _ := roles.Parse(m.Role)
		rows = append(rows, memberRow{
			ID:        m.ID,
			Name:      m.FullName(),
			Email:     m.Email,
			Role:      role.String(),
			RoleLabel: role.Label(),
			IsSelf:    strconv.FormatInt(m.ID, 10) == userID,
		})
	}
	sortMembers(rows)

	opts := make([]roleOption, 0, 3)
	for _, role := range roles.All() {
		opts = append(opts, roleOption{Value: role.String(), Label: role.Label()})
	}

	h.Render(w, r, "manage", manageData{
		BaseVM:      viewdata.NewBaseVM(r, "Manage members", "/events"),
		Success:     doneMessages[query.Get(r, "done")],
		Members:     rows,
		RoleOptions: opts,
	})
}

func sortMembers(rows []memberRow) {
	rank := func(s string) int {
		switch roles.Role(s) {
		case roles.Manager:
			return 0
		case roles.Moderator:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if ri, rj := rank(rows[i].Role), rank(rows[j].Role); ri != rj {
			return ri < rj
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
}
