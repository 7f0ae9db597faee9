// internal/app/features/events/new.go
package events

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/backend"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

type eventInput struct {
	Title       string `validate:"required,max=200" label:"Title"`
	Location    string `validate:"max=200" label:"Location"`
	Description string `validate:"max=5000" label:"Description"`
	Date        string `validate:"required,eventdate" label:"Date"`
}

func eventInputFrom(r *http.Request) eventInput {
	return eventInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Date:        strings.TrimSpace(r.FormValue("date")),
	}
}

type trackOption struct {
	ID      int64
	Name    string
	Checked bool
}

// formData backs both the new and the edit form.
type formData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Action      string
	Submit      string
	EventTitle  string
	Location    string
	Description string
	Date        string
	Tracks      []trackOption
}

// trackOptions marks the tracks in chosen as checked.
func trackOptions(available []models.Track, chosen []int64) []trackOption {
	picked := make(map[int64]bool, len(chosen))
	for _, id := range chosen {
		picked[id] = true
	}
	opts := make([]trackOption, 0, len(available))
	for _, t := range available {
		opts = append(opts, trackOption{ID: t.ID, Name: t.Name, Checked: picked[t.ID]})
	}
	return opts
}

// selectedTracks returns the posted track ids that belong to available.
// Anything else is dropped.
func selectedTracks(r *http.Request, available []models.Track) []int64 {
	allowed := make(map[int64]bool, len(available))
	for _, t := range available {
		allowed[t.ID] = true
	}
	ids := []int64{}
	for _, v := range r.Form["track_ids"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil && allowed[id] {
			ids = append(ids, id)
			allowed[id] = false
		}
	}
	return ids
}

// groupTracks loads the repertoire for the track picker. A failure only
// costs the picker.
func (h *Handler) groupTracks(r *http.Request, groupID int64, userID string) []models.Track {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupTracks(ctx, groupID, userID)
	if err != nil {
		h.Log.Warn("load tracks for event form failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		return nil
	}
	return list
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/new                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	h.Render(w, r, "events_form", formData{
		BaseVM: viewdata.NewBaseVM(r, "New event", "/events"),
		Action: "/events/new",
		Submit: "Add event",
		Tracks: trackOptions(h.groupTracks(r, groupID, userID), nil),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /events/new                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleNew adds an event to the current group's calendar. The date comes
// from a datetime-local input and carries no zone; it is stored as UTC.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/events")
		return
	}
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	in := eventInputFrom(r)
	available := h.groupTracks(r, groupID, userID)
	trackIDs := selectedTracks(r, available)
	reRender := func(msg string) {
		h.Render(w, r, "events_form", formData{
			BaseVM:      viewdata.NewBaseVM(r, "New event", "/events"),
			Error:       msg,
			Action:      "/events/new",
			Submit:      "Add event",
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

	_, err := h.Backend.CreateEvent(ctx, userID, backend.EventInput{
		Title:       in.Title,
		Location:    in.Location,
		Description: in.Description,
		Date:        date.UTC(),
		GroupID:     groupID,
		TrackIDs:    trackIDs,
	})
	if err != nil {
		h.Log.Warn("create event failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		reRender("We couldn't add the event. Please try again.")
		return
	}

	h.AuditLog.EventCreated(r.Context(), r, userID, groupID, in.Title)
	redirect(w, r, "/events?done=created")
}
