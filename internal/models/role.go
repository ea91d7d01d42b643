package models

import "fmt"

// Role is the closed set of chat participant roles. It is resolved once from the
// token claim when a connection is established and threaded through as data.
type Role uint8

const (
	RoleParent Role = iota
	RoleProvider
)

// ParseRole maps a token role claim onto the closed Role set.
func ParseRole(claim string) (Role, error) {
	switch claim {
	case "parent":
		return RoleParent, nil
	case "provider":
		return RoleProvider, nil
	default:
		return RoleParent, fmt.Errorf("unknown role claim %q", claim)
	}
}

// IsProvider reports whether the role is the provider side of a room.
func (r Role) IsProvider() bool {
	return r == RoleProvider
}

// Opposite returns the counterpart role.
func (r Role) Opposite() Role {
	if r == RoleProvider {
		return RoleParent
	}
	return RoleProvider
}

func (r Role) String() string {
	if r == RoleProvider {
		return "provider"
	}
	return "parent"
}
