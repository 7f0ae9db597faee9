// internal/app/features/tracks/list.go
package tracks

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
	"github.com/dalemusser/waffle/pantry/query"
)

type trackRow struct {
	ID          int64
	Name        string
	Description string
	Parts       int
}

type listData struct {
	viewdata.BaseVM
	Error     string
	Success   string
	Items     []trackRow
	CanCreate bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tracks                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows the group's repertoire in title order.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()
	role, _ := gc.Role()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupTracks(ctx, groupID, userID)
	if err != nil {
		h.failLoad(w, r, "load tracks", err, "We couldn't load the repertoire. Please try again.", "/events")
		return
	}

	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	rows := make([]trackRow, 0, len(list))
	for _, t := range list {
		rows = append(rows, trackRow{ID: t.ID, Name: t.Name, Description: t.Description, Parts: len(t.Notesheets)})
	}

	var success string
	if query.Get(r, "done") == "created" {
		success = "Track added."
	}

	h.Render(w, r, "tracks_list", listData{
		BaseVM:    viewdata.NewBaseVM(r, "Tracks", "/events"),
		Success:   success,
		Items:     rows,
		CanCreate: role.AtLeast(roles.Moderator),
	})
}
