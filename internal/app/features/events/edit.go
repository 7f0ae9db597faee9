// internal/app/features/events/edit.go
package events

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/backend"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/{id}/edit                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	userID, _ := auth.UserID(r)
	back := fmt.Sprintf("/events/%d", ev.ID)

	h.Render(w, r, "events_form", formData{
		BaseVM:      viewdata.NewBaseVM(r, "Edit event", back),
		Action:      back + "/edit",
		Submit:      "Save changes",
		EventTitle:  ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		Date:        ev.Date.UTC().Format(inputval.EventDateLayout),
		Tracks:      trackOptions(h.groupTracks(r, ev.GroupID, userID), ev.TrackIDs()),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /events/{id}/edit                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleEdit saves an event and its set list. Tracks of other groups are
// dropped from the form before it is sent.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/events")
		return
	}
	ev, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()
	back := fmt.Sprintf("/events/%d", ev.ID)

	in := eventInputFrom(r)
	available := h.groupTracks(r, groupID, userID)
	trackIDs := selectedTracks(r, available)
	reRender := func(msg string) {
		h.Render(w, r, "events_form", formData{
			BaseVM:      viewdata.NewBaseVM(r, "Edit event", back),
			Error:       msg,
			Action:      back + "/edit",
			Submit:      "Save changes",
			EventTitle:  in.Title,
			Location:    in.Location,
			Description: in.Description,
			Date:        in.Date,
			Tracks:      trackOptions(available, trackIDs),
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}
	date, _ := inputval.ParseEventDate(in.Date)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Backend.UpdateEvent(ctx, ev.ID, userID, backend.EventInput{
		Title:       in.Title,
		Location:    in.Location,
		Description: in.Description,
		Date:        date.UTC(),
		TrackIDs:    trackIDs,
	})
	if err != nil {
		h.Log.Warn("update event failed",
			zap.String("user_id", userID), zap.Int64("event_id", ev.ID), zap.Error(err))
		reRender("We couldn't save the event. Please try again.")
		return
	}

	h.AuditLog.EventUpdated(r.Context(), r, userID, groupID, ev.ID, in.Title)
	redirect(w, r, back+"?done=updated")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /events/{id}/delete                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	userID, _ := auth.UserID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Backend.DeleteEvent(ctx, ev.ID, userID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete event", err, "We couldn't delete the event. Please try again.", fmt.Sprintf("/events/%d", ev.ID))
		return
	}

	h.AuditLog.EventDeleted(r.Context(), r, userID, ev.GroupID, ev.ID)
	redirect(w, r, "/events?done=deleted")
}
