// internal/app/features/tracks/detail.go
package tracks

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type partRow struct {
	Instrument string
	FileName   string
	Sections   string
}

type detailData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Name        string
	Description string
	Parts       []partRow
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tracks/{id}                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDetail lists the parts (notesheets) of one track. The track must be
// in the selected group's repertoire.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	trackID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || trackID <= 0 {
		uierrors.RenderNotFound(w, r, "That track does not exist.", "/tracks")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Backend.GroupTracks(ctx, groupID, userID)
	if err != nil {
		h.failLoad(w, r, "load tracks", err, "We couldn't load this track. Please try again.", "/tracks")
		return
	}
	var track models.Track
	found := false
	for _, t := range list {
		if t.ID == trackID {
			track, found = t, true
			break
		}
	}
	if !found {
		uierrors.RenderNotFound(w, r, "That track is not in this group.", "/tracks")
		return
	}

	sheets, err := h.Backend.TrackNotesheets(ctx, trackID, userID)
	if err != nil {
		h.failLoad(w, r, "load notesheets", err, "We couldn't load the parts for this track. Please try again.", "/tracks")
		return
	}

	sort.SliceStable(sheets, func(i, j int) bool { return sheets[i].Instrument < sheets[j].Instrument })
	parts := make([]partRow, 0, len(sheets))
	for _, n := range sheets {
		sections := make([]string, 0, len(n.Subgroups))
		for _, sg := range n.Subgroups {
			sections = append(sections, sg.Name)
		}
		parts = append(parts, partRow{
			Instrument: n.Instrument,
			FileName:   n.FileName,
			Sections:   strings.Join(sections, ", "),
		})
	}

	h.Render(w, r, "tracks_detail", detailData{
		BaseVM:      viewdata.NewBaseVM(r, track.Name, "/tracks"),
		Name:        track.Name,
		Description: track.Description,
		Parts:       parts,
	})
}
