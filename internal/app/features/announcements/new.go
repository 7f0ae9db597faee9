// internal/app/features/announcements/new.go
package announcements

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

type createAnnouncementInput struct {
	Title       string `validate:"required,max=200" label:"Title"`
	Description string `validate:"max=5000" label:"Message"`
	Priority    string `validate:"required,oneof=0 1 2" label:"Priority"`
}

type priorityOption struct {
	Value int
	Label string
}

var priorityOptions = []priorityOption{
	{models.PriorityLow, models.PriorityLabel(models.PriorityLow)},
	{models.PriorityMedium, models.PriorityLabel(models.PriorityMedium)},
	{models.PriorityHigh, models.PriorityLabel(models.PriorityHigh)},
}

type newData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Title       string
	Description string
	Priority    string
	Priorities  []priorityOption
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /announcements/new                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "announcements_new", newData{
		BaseVM:     viewdata.NewBaseVM(r, "New announcement", "/announcements"),
		Priority:   strconv.Itoa(models.PriorityLow),
		Priorities: priorityOptions,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /announcements/new                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleNew posts an announcement to every member of the current group.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/announcements")
		return
	}
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	in := createAnnouncementInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Priority:    strings.TrimSpace(r.FormValue("priority")),
	}
	reRender := func(msg string) {
		h.Render(w, r, "announcements_new", newData{
			BaseVM:      viewdata.NewBaseVM(r, "New announcement", "/announcements"),
			Error:       msg,
			Title:       in.Title,
			Description: in.Description,
			Priority:    in.Priority,
			Priorities:  priorityOptions,
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}
	priority, _ := strconv.Atoi(in.Priority)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, err := h.Backend.CreateAnnouncement(ctx, userID, backend.NewAnnouncement{
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		GroupID:     groupID,
	})
	if err != nil {
		h.Log.Warn("create announcement failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		reRender("We couldn't post the announcement. Please try again.")
		return
	}

	h.AuditLog.AnnouncementCreated(r.Context(), r, userID, groupID, in.Title, priority)
	redirect(w, r, "/announcements?done=created")
}
