// internal/domain/models/announcement.go
package models

import "time"

// Announcement priorities as stored by the backend.
const (
	PriorityLow    = 0
	PriorityMedium = 1
	PriorityHigh   = 2
)

// Announcement is a message sent to members of a group.
type Announcement struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	GroupID     int64     `json:"group_id"`
	SenderID    int64     `json:"sender_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PriorityLabel returns the display name for a priority value.
func PriorityLabel(p int) string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	}
	return "Low"
}
