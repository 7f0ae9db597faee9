// Package roles defines the per-group membership roles and their ranking.
//
// A user's role is always relative to a group: the same user can be a
// manager of one band and a plain member of another. Roles are ordered
// member < moderator < manager, and every "at least" check in the app goes
// through AtLeast so the ordering lives in one place.
package roles

import (
	"fmt"
	"strings"
)

// Role is a user's role inside a single group.
type Role string

const (
	Member    Role = "member"
	Moderator Role = "moderator"
	Manager   Role = "manager"
)

// None is the zero Role, used when no group is selected.
const None Role = ""

var rank = map[Role]int{
	Member:    1,
	Moderator: 2,
	Manager:   3,
}

// All lists the valid roles from lowest to highest.
func All() []Role {
	return []Role{Member, Moderator, Manager}
}

// Parse normalizes s and returns the matching Role.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rank[r]; !ok {
		return None, fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min. Unknown roles never
// satisfy any minimum.
func (r Role) AtLeast(min Role) bool {
	have, ok := rank[r]
	if !ok {
		return false
	}
	need, ok := rank[min]
	if !ok {
		return false
	}
	return have >= need
}

func (r Role) String() string { return string(r) }

// Label is the capitalized form used in page headings.
func (r Role) Label() string {
	if r == None {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}
