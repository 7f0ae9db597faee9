// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /activity: the audit trail of the current group,
// newest first, with category, type and date filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r)
	gc, _ := groupctx.From(r)
	groupID, _ := gc.GroupID()

	base := viewdata.NewBaseVM(r, "Activity", "/manage")
	if h.Store == nil {
		h.Render(w, r, "activity_list", listData{
			BaseVM:     base,
			Disabled:   true,
			Categories: allCategories(),
			Page:       1,
			TotalPages: 1,
		})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "activity log list")
	defer cancel()

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	eventType := strings.TrimSpace(q.Get("event_type"))
	startDate := strings.TrimSpace(q.Get("start_date"))
	endDate := strings.TrimSpace(q.Get("end_date"))
	if !validCategory(category) {
		category = ""
	}
	if !validEventType(category, eventType) {
		eventType = ""
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		GroupID:   &groupID,
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if t, err := time.Parse("2006-01-02", startDate); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.Parse("2006-01-02", endDate); err == nil {
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events", err, "We couldn't load the activity log.", "/manage")
		return
	}
	total, err := h.Store.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events", err, "We couldn't load the activity log.", "/manage")
		return
	}

	names := h.memberNames(r, groupID, userID)

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:         e.ID.Hex(),
			Timestamp:  e.Timestamp,
			Category:   e.Category,
			EventType:  e.EventType,
			ActorName:  nameOr(names, e.ActorID),
			TargetName: nameOr(names, e.UserID),
			Success:    e.Success,
			Reason:     e.FailureReason,
			Details:    e.Details,
		})
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	prevPage := page - 1
	if prevPage < 1 {
		prevPage = 1
	}
	nextPage := page + 1
	if nextPage > totalPages {
		nextPage = totalPages
	}

	h.Render(w, r, "activity_list", listData{
		BaseVM:     base,
		Items:      items,
		Category:   category,
		EventType:  eventType,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   prevPage,
		NextPage:   nextPage,
	})
}

// memberNames maps backend user ids to display names. Former members are
// not in the list and show as their id.
func (h *Handler) memberNames(r *http.Request, groupID int64, userID string) map[string]string {
	names := map[string]string{}
	if h.Members == nil {
		return names
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "activity member names")
	defer cancel()

	members, err := h.Members.GroupMembers(ctx, groupID, userID)
	if err != nil {
		h.Log.Warn("failed to fetch member names for activity log", zap.Error(err))
		return names
	}
	for _, m := range members {
		names[strconv.FormatInt(m.ID, 10)] = m.FullName()
	}
	return names
}

func nameOr(names map[string]string, id string) string {
	if id == "" {
		return ""
	}
	if n, ok := names[id]; ok {
		return n
	}
	return "#" + id
}
