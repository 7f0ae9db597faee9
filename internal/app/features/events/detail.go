// internal/app/features/events/detail.go
package events

import (
	"context"
	"html/template"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
)

type detailData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	ID          int64
	Title       string
	Location    string
	Description template.HTML
	Day         string
	Time        string
	Tracks      []string
	CanEdit     bool
}

// loadEvent fetches the event named by the {id} URL parameter. An event
// of another group is reported as not found, even when the backend would
// show it to this user. On failure the response is already written.
func (h *Handler) loadEvent(w http.ResponseWriter, r *http.Request) (models.Event, bool) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || eventID <= 0 {
		uierrors.RenderNotFound(w, r, "That event does not exist.", "/events")
		return models.Event{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, err := h.Backend.EventInfo(ctx, eventID, userID)
	if err != nil {
		h.failLoad(w, r, "load event", err, "We couldn't load this event. Please try again.", "/events")
		return models.Event{}, false
	}
	if ev.GroupID != groupID {
		uierrors.RenderNotFound(w, r, "That event is not in this group.", "/events")
		return models.Event{}, false
	}
	return ev, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/{id}                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDetail shows one event and the tracks on its set list.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	gc, _ := groupctx.From(r)
	role, _ := gc.Role()

	tracks := make([]string, 0, len(ev.Tracks))
	for _, t := range ev.Tracks {
		tracks = append(tracks, t.Name)
	}

	var success string
	if query.Get(r, "done") == "updated" {
		success = "Event updated."
	}

	h.Render(w, r, "events_detail", detailData{
		BaseVM:      viewdata.NewBaseVM(r, ev.Title, "/events"),
		Success:     success,
		ID:          ev.ID,
		Title:       ev.Title,
		Location:    ev.Location,
		Description: htmlsanitize.PrepareForDisplay(ev.Description),
		Day:         ev.Date.Format("Mon, Jan 2, 2006"),
		Time:        ev.Date.Format("3:04 PM"),
		Tracks:      tracks,
		CanEdit:     role.AtLeast(roles.Moderator),
	})
}
