// internal/domain/models/user.go
package models

// User is the account returned by a successful credential exchange.
// Passwords never leave the backend; this frontend only sees the profile.
type User struct {
	ID        int64        `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Groups    []Membership `json:"groups"`
}
