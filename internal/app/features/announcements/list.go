// internal/app/features/announcements/list.go
package announcements

import (
	"context"
	"html/template"
	"net/http"
	"sort"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type announcementRow struct {
	ID            int64
	Title         string
	Description   template.HTML
	Priority      int
	PriorityLabel string
	Posted        string
}

type listData struct {
	viewdata.BaseVM
	Error   string
	Success string
	Items   []announcementRow
	CanPost bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /announcements                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows the group's announcements, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()
	role, _ := gc.Role()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupAnnouncements(ctx, groupID, userID)
	if err != nil {
		h.failLoad(w, r, "load announcements", err, "We couldn't load announcements. Please try again.", "/events")
		return
	}

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})

	rows := make([]announcementRow, 0, len(list))
	for _, a := range list {
		rows = append(rows, rowOf(a))
	}

	var success string
	switch query.Get(r, "done") {
	case "created":
		success = "Announcement posted."
	case "deleted":
		success = "Announcement deleted."
	}

	h.Render(w, r, "announcements_list", listData{
		BaseVM:  viewdata.NewBaseVM(r, "Announcements", "/events"),
		Success: success,
		Items:   rows,
		CanPost: role.AtLeast(roles.Moderator),
	})
}

func rowOf(a models.Announcement) announcementRow {
	posted := ""
	if !a.CreatedAt.IsZero() {
		posted = a.CreatedAt.Format("Jan 2, 2006 3:04 PM")
	}
	return announcementRow{
		ID:            a.ID,
		Title:         a.Title,
		Description:   htmlsanitize.PrepareForDisplay(a.Description),
		Priority:      a.Priority,
		PriorityLabel: models.PriorityLabel(a.Priority),
		Posted:        posted,
	}
}
