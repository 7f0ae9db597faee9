// internal/domain/models/event.go
package models

import "time"

// Event is a rehearsal, gig or other dated entry on a group's calendar.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	GroupID     int64     `json:"group_id"`
	Tracks      []Track   `json:"tracks"`
}

// TrackIDs lists the ids of the tracks played at the event.
func (e Event) TrackIDs() []int64 {
	ids := make([]int64, 0, len(e.Tracks))
	for _, t := range e.Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}
