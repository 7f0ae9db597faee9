// internal/domain/models/subgroup.go
package models

// Subgroup is a section of a band (trumpets, rhythm section). Members of
// a subgroup are always members of its group. The group listing carries
// member ids only.
type Subgroup struct {
	ID          int64   `json:"id"`
	GroupID     int64   `json:"group_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UserIDs     []int64 `json:"users"`
}
