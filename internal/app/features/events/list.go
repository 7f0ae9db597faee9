// internal/app/features/events/list.go
package events

import (
	"context"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type eventRow struct {
	ID          int64
	Title       string
	Location    string
	Description template.HTML
	Day         string
	Time        string
}

type listData struct {
	viewdata.BaseVM
	Error    string
	Success  string
	Upcoming []eventRow
	Past     []eventRow
	CanPost  bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows the group's events: upcoming soonest first, then past
// events most recent first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()
	role, _ := gc.Role()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupEvents(ctx, groupID, userID)
	if err != nil {
		h.failLoad(w, r, "load events", err, "We couldn't load the calendar. Please try again.", "/dashboard")
		return
	}

	upcoming, past := split(list, h.now())

	var success string
	switch query.Get(r, "done") {
	case "created":
		success = "Event added."
	case "deleted":
		success = "Event deleted."
	}

	h.Render(w, r, "events_list", listData{
		BaseVM:   viewdata.NewBaseVM(r, "Events", "/dashboard"),
		Success:  success,
		Upcoming: rowsOf(upcoming),
		Past:     rowsOf(past),
		CanPost:  role.AtLeast(roles.Moderator),
	})
}

// split partitions events around now. An event that starts exactly now is
// upcoming.
func split(list []models.Event, now time.Time) (upcoming, past []models.Event) {
	for _, ev := range list {
		if !ev.Date.Before(now) {
			upcoming = append(upcoming, ev)
		} else {
			past = append(past, ev)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(upcoming[j].Date) })
	sort.SliceStable(past, func(i, j int) bool { return past[i].Date.After(past[j].Date) })
	return upcoming, past
}

func rowsOf(list []models.Event) []eventRow {
	rows := make([]eventRow, 0, len(list))
	for _, ev := range list {
		rows = append(rows, eventRow{
			ID:          ev.ID,
			Title:       ev.Title,
			Location:    ev.Location,
			Description: htmlsanitize.PrepareForDisplay(ev.Description),
			Day:         ev.Date.Format("Mon, Jan 2, 2006"),
			Time:        ev.Date.Format("3:04 PM"),
		})
	}
	return rows
}
