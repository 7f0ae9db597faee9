// internal/app/features/tracks/new.go
package tracks

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
)

type createTrackInput struct {
	Title       string `validate:"required,max=200" label:"Title"`
	Description string `validate:"max=2000" label:"Description"`
}

type newData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	TrackTitle  string
	Description string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tracks/new                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "tracks_new", newData{
		BaseVM: viewdata.NewBaseVM(r, "New track", "/tracks"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /tracks/new                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleNew adds a track to the repertoire. Parts are uploaded elsewhere.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/tracks")
		return
	}
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	in := createTrackInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	reRender := func(msg string) {
		h.Render(w, r, "tracks_new", newData{
			BaseVM:      viewdata.NewBaseVM(r, "New track", "/tracks"),
			Error:       msg,
			TrackTitle:  in.Title,
			Description: in.Description,
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Backend.CreateTrack(ctx, userID, groupID, in.Title, in.Description); err != nil {
		h.Log.Warn("create track failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		reRender("We couldn't add the track. Please try again.")
		return
	}

	h.AuditLog.TrackCreated(r.Context(), r, userID, groupID, in.Title)
	redirect(w, r, "/tracks?done=created")
}
