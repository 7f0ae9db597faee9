// internal/app/features/subgroups/list.go
package subgroups

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type subgroupRow struct {
	ID          int64
	Name        string
	Description string
	Members     []string
}

type listData struct {
	viewdata.BaseVM
	Error     string
	Success   string
	Items     []subgroupRow
	CanCreate bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /subgroups                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows the group's sections by name with their members. The
// backend lists members by id; names come from the group roster.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()
	role, _ := gc.Role()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupSubgroups(ctx, groupID, userID)
	if err != nil {
		h.failLoad(w, r, "load subgroups", err, "We couldn't load sections. Please try again.", "/events")
		return
	}

	names := map[int64]string{}
	if members, err := h.Backend.GroupMembers(ctx, groupID, userID); err == nil {
		for _, m := range members {
			names[m.ID] = m.FullName()
		}
	} else {
		h.Log.Warn("load roster for subgroups failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
	}

	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	rows := make([]subgroupRow, 0, len(list))
	for _, sg := range list {
		rows = append(rows, subgroupRow{
			ID:          sg.ID,
			Name:        sg.Name,
			Description: sg.Description,
			Members:     memberNames(sg, names),
		})
	}

	var success string
	switch query.Get(r, "done") {
	case "created":
		success = "Section created."
	case "partial":
		success = "Section created, but some members could not be added."
	}

	h.Render(w, r, "subgroups_list", listData{
		BaseVM:    viewdata.NewBaseVM(r, "Sections", "/events"),
		Success:   success,
		Items:     rows,
		CanCreate: role.AtLeast(roles.Moderator),
	})
}

// memberNames resolves member ids, skipping anyone no longer on the
// roster.
func memberNames(sg models.Subgroup, names map[int64]string) []string {
	out := make([]string, 0, len(sg.UserIDs))
	for _, id := range sg.UserIDs {
		if n, ok := names[id]; ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
