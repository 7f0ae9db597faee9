// internal/domain/models/track.go
package models

// Track is a piece in a group's repertoire. The backend calls its title
// "name" on the way out and "title" on the way in.
type Track struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	GroupID     int64       `json:"group_id"`
	Description string      `json:"description"`
	Notesheets  []Notesheet `json:"notesheets"`
}

// Notesheet is one instrument's part of a track. Only the metadata is
// shown here; the file itself stays with the backend.
type Notesheet struct {
	ID         int64      `json:"id"`
	TrackID    int64      `json:"track_id"`
	Instrument string     `json:"instrument"`
	FileName   string     `json:"file_name"`
	FileType   string     `json:"file_type"`
	Subgroups  []Subgroup `json:"subgroups"`
}
