// internal/domain/models/groupmembership.go
package models

// Membership links a user to a group with a role. It appears in the login
// response and in the create/join responses.
type Membership struct {
	GroupID int64  `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// Member is a row of the manage page's member list.
type Member struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// FullName joins first and last name for display.
func (m Member) FullName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
