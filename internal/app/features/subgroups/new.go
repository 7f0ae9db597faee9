// internal/app/features/subgroups/new.go
package subgroups

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

type createSubgroupInput struct {
	Name        string `validate:"required,max=100" label:"Name"`
	Description string `validate:"max=1000" label:"Description"`
}

type memberOption struct {
	ID      int64
	Name    string
	Checked bool
}

type newData struct {
	viewdata.BaseVM
	Error       string
	Success     string
	Name        string
	Description string
	Members     []memberOption
}

func (h *Handler) roster(r *http.Request, groupID int64, userID string) []models.Member {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	members, err := h.Backend.GroupMembers(ctx, groupID, userID)
	if err != nil {
		h.Log.Warn("load roster for subgroup form failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		return nil
	}
	return members
}

func memberOptions(members []models.Member, chosen []int64) []memberOption {
	picked := make(map[int64]bool, len(chosen))
	for _, id := range chosen {
		picked[id] = true
	}
	opts := make([]memberOption, 0, len(members))
	for _, m := range members {
		opts = append(opts, memberOption{ID: m.ID, Name: m.FullName(), Checked: picked[m.ID]})
	}
	return opts
}

// chosenMembers returns the posted member ids that are on the roster.
func chosenMembers(r *http.Request, members []models.Member) []int64 {
	onRoster := make(map[int64]bool, len(members))
	for _, m := range members {
		onRoster[m.ID] = true
	}
	ids := []int64{}
	for _, v := range r.Form["member_ids"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil && onRoster[id] {
			ids = append(ids, id)
			onRoster[id] = false
		}
	}
	return ids
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /subgroups/new                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	h.Render(w, r, "subgroups_new", newData{
		BaseVM:  viewdata.NewBaseVM(r, "New section", "/subgroups"),
		Members: memberOptions(h.roster(r, groupID, userID), nil),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /subgroups/new                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleNew creates a section and puts the chosen members in it. Members
// not on the group roster are dropped.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/subgroups")
		return
	}
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	in := createSubgroupInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	members := h.roster(r, groupID, userID)
	chosen := chosenMembers(r, members)
	reRender := func(msg string) {
		h.Render(w, r, "subgroups_new", newData{
			BaseVM:      viewdata.NewBaseVM(r, "New section", "/subgroups"),
			Error:       msg,
			Name:        in.Name,
			Description: in.Description,
			Members:     memberOptions(members, chosen),
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sg, err := h.Backend.CreateSubgroup(ctx, userID, groupID, in.Name, in.Description)
	if err != nil {
		h.Log.Warn("create subgroup failed",
			zap.String("user_id", userID), zap.Int64("group_id", groupID), zap.Error(err))
		reRender("We couldn't create the section. Please try again.")
		return
	}
	h.AuditLog.SubgroupCreated(r.Context(), r, userID, groupID, in.Name)

	if len(chosen) > 0 {
		if err := h.Backend.AddSubgroupMembers(ctx, sg.ID, userID, chosen); err != nil {
			h.Log.Warn("add subgroup members failed",
				zap.String("user_id", userID), zap.Int64("subgroup_id", sg.ID), zap.Error(err))
			redirect(w, r, "/subgroups?done=partial")
			return
		}
	}
	redirect(w, r, "/subgroups?done=created")
}
