// internal/app/features/announcements/detail.go
package announcements

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type detailData struct {
	viewdata.BaseVM
	Error     string
	Success   string
	Item      announcementRow
	CanDelete bool
}

// loadAnnouncement finds the {id} announcement among the selected group's
// announcements; the backend has no single-announcement read. On failure
// the response is already written.
func (h *Handler) loadAnnouncement(w http.ResponseWriter, r *http.Request) (models.Announcement, bool) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		uierrors.RenderNotFound(w, r, "That announcement does not exist.", "/announcements")
		return models.Announcement{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupAnnouncements(ctx, groupID, userID)
	if err != nil {
		h.failLoad(w, r, "load announcements", err, "We couldn't load this announcement. Please try again.", "/announcements")
		return models.Announcement{}, false
	}
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	uierrors.RenderNotFound(w, r, "That announcement is not in this group.", "/announcements")
	return models.Announcement{}, false
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /announcements/{id}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnnouncement(w, r)
	if !ok {
		return
	}
	gc, _ := groupctx.From(r)
	role, _ := gc.Role()

	h.Render(w, r, "announcements_detail", detailData{
		BaseVM:    viewdata.NewBaseVM(r, a.Title, "/announcements"),
		Item:      rowOf(a),
		CanDelete: role.AtLeast(roles.Moderator),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /announcements/{id}/delete                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnnouncement(w, r)
	if !ok {
		return
	}
	userID, _ := auth.UserID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Backend.DeleteAnnouncement(ctx, a.ID, userID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete announcement", err, "We couldn't delete the announcement. Please try again.", "/announcements")
		return
	}

	h.AuditLog.AnnouncementDeleted(r.Context(), r, userID, a.GroupID, a.ID)
	redirect(w, r, "/announcements?done=deleted")
}
