package domain

import (
	"sort"
	"strings"
)

// Role represents the access level of a community member.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleBoardMember     Role = "board_member"
	RoleCommunityMember Role = "community_member"
)

// roleRanks defines the sort rank of each role. Lower rank sorts first, so
// super admins lead any role-ordered user list.
var roleRanks = map[Role]int{
	RoleSuperAdmin:      0,
	RoleBoardMember:     1,
	RoleCommunityMember: 2,
}

// roleLabels defines the fixed display label of each role.
var roleLabels = map[Role]string{
	RoleSuperAdmin:      "Super Admin",
	RoleBoardMember:     "Board Member",
	RoleCommunityMember: "Community Member",
}

// Valid reports whether r is one of the three canonical roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Label returns the display label for the role.
func (r Role) Label() string {
	return roleLabels[r]
}

// Rank returns the sort rank for the role. Unknown roles rank last.
func (r Role) Rank() int {
	if rank, ok := roleRanks[r]; ok {
		return rank
	}
	return len(roleRanks)
}

// AtLeast reports whether r carries at least the privileges of other.
// The hierarchy is rank-based: super_admin ≥ board_member ≥ community_member.
func (r Role) AtLeast(other Role) bool {
	if !r.Valid() || !other.Valid() {
		return false
	}
	return r.Rank() <= other.Rank()
}

// Capabilities are the boolean access flags derived from a role, consumed
// directly by UI gating logic.
type Capabilities struct {
	IsSuperAdmin      bool `json:"is_super_admin"`
	IsBoardMember     bool `json:"is_board_member"`
	IsCommunityMember bool `json:"is_community_member"`
}

// ResolveCapabilities derives capability flags from a role. A nil role (no
// authenticated user) yields all-false flags. Each flag is true when the
// role's rank is at or above the named threshold, so the flags are monotone:
// IsSuperAdmin implies IsBoardMember implies IsCommunityMember.
func ResolveCapabilities(role *Role) Capabilities {
	if role == nil {
		return Capabilities{}
	}
	return Capabilities{
		IsSuperAdmin:      role.AtLeast(RoleSuperAdmin),
		IsBoardMember:     role.AtLeast(RoleBoardMember),
		IsCommunityMember: role.AtLeast(RoleCommunityMember),
	}
}

// SortUsers orders users in place by role rank, ties broken by
// case-insensitive name comparison.
func SortUsers(users []User) {
	sort.SliceStable(users, func(i, j int) bool {
		ri, rj := users[i].Role.Rank(), users[j].Role.Rank()
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
}
