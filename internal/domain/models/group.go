// internal/domain/models/group.go
package models

// Group is a band as returned by the backend's group detail endpoint.
//
// AccessToken is the join code. The backend only fills it in for
// managers and the pages only render it for managers.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AccessToken string `json:"access_token,omitempty"`
}

// GroupSummary is one row of the sidebar group list, carrying the
// requesting user's role in that group.
type GroupSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Role         string `json:"role"`
	MembersCount int    `json:"members_count"`
}
