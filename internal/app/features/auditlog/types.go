// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
)

// listItem is one audit event row.
type listItem struct {
	ID         string
	Timestamp  time.Time
	Category   string
	EventType  string
	ActorName  string // resolved from ActorID
	TargetName string // resolved from UserID
	Success    bool
	Reason     string
	Details    map[string]string
}

type listData struct {
	viewdata.BaseVM
	Error   string
	Success string

	// Disabled is set when no audit store is configured.
	Disabled bool

	Items []listItem

	// Filters
	Category  string
	EventType string
	StartDate string
	EndDate   string

	Categories []categoryOption
	EventTypes []string

	// Pagination
	Page       int
	TotalPages int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

type categoryOption struct {
	Value string
	Label string
}

// Auth events carry no group id, so only these two categories can match.
func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryGroup, Label: "Group"},
		{Value: audit.CategorySecurity, Label: "Security"},
	}
}

// eventTypesForCategory returns the event types for a category, or all of
// them for "".
func eventTypesForCategory(category string) []string {
	groupEvents := []string{
		audit.EventGroupSelected,
		audit.EventGroupCleared,
		audit.EventGroupCreated,
		audit.EventGroupJoined,
		audit.EventMemberRemoved,
		audit.EventMemberRoleChanged,
		audit.EventJoinCodeRefreshed,
		audit.EventSubgroupCreated,
		audit.EventTrackCreated,
		audit.EventEventCreated,
		audit.EventEventUpdated,
		audit.EventEventDeleted,
		audit.EventAnnouncementCreated,
		audit.EventAnnouncementDeleted,
	}
	securityEvents := []string{
		audit.EventStaleMembership,
	}

	switch category {
	case audit.CategoryGroup:
		return groupEvents
	case audit.CategorySecurity:
		return securityEvents
	case "":
		all := make([]string, 0, len(groupEvents)+len(securityEvents))
		all = append(all, groupEvents...)
		return append(all, securityEvents...)
	default:
		return nil
	}
}

func validCategory(c string) bool {
	return c == "" || c == audit.CategoryGroup || c == audit.CategorySecurity
}

func validEventType(category, eventType string) bool {
	if eventType == "" {
		return true
	}
	for _, t := range eventTypesForCategory(category) {
		if t == eventType {
			return true
		}
	}
	return false
}
