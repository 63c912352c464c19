package goGuard

import (
	"errors"
	"strings"
)

// Role is the closed set of account categories a [Profile] can carry.
// Every switch over Role in this module is exhaustive; adding a role means
// touching each of them.
type Role uint8

const (
	// RoleUnknown is the zero value. It is never stored on a valid profile.
	RoleUnknown Role = iota
	// RoleOwner manages listings and lands on the dashboard.
	RoleOwner
	// RoleTraveler books listings and lands on the home page.
	RoleTraveler

	roleCount
)

// ErrRoleInvalid is returned by [ParseRole] for names outside the closed set.
var ErrRoleInvalid = errors.New("invalid role")

// ParseRole maps a stored role name to a [Role]. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "owner":
		return RoleOwner, nil
	case "traveler":
		return RoleTraveler, nil
	default:
		return RoleUnknown, ErrRoleInvalid
	}
}

// String returns the stored name of the role.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleTraveler:
		return "traveler"
	case RoleUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	return r > RoleUnknown && r < roleCount
}

// LandingPath returns the default landing page for r.
// Owners land on the dashboard; every other role lands on the home page.
func (r Role) LandingPath(paths Paths) string {
	switch r {
	case RoleOwner:
		return paths.Dashboard
	case RoleTraveler, RoleUnknown:
		return paths.Home
	default:
		return paths.Home
	}
}

// RoleSet is a bitmask of roles. The zero value is an empty set; a route
// with a nil *RoleSet (see [Route]) has no role constraint at all.
type RoleSet uint64

// NewRoleSet builds a set from the given roles. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s.Add(r)
	}
	return s
}

// Add inserts r into the set.
func (s *RoleSet) Add(r Role) {
	if !r.Valid() {
		return
	}
	*s |= 1 << r
}

// Remove deletes r from the set.
func (s *RoleSet) Remove(r Role) {
	if !r.Valid() {
		return
	}
	*s &^= 1 << r
}

// Has reports whether r is a member of the set.
func (s RoleSet) Has(r Role) bool {
	if !r.Valid() {
		return false
	}
	return s&(1<<r) != 0
}

// Roles returns the members in declaration order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, int(roleCount))
	for r := RoleUnknown + 1; r < roleCount; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseRoleSet parses a list of role names. Any invalid name fails the
// whole set.
func ParseRoleSet(names []string) (RoleSet, error) {
	var s RoleSet
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			return 0, err
		}
		s.Add(r)
	}
	return s, nil
}
