// Package normalize converts untrusted user payloads into canonical domain
// users. It is the only place where legacy role aliases are interpreted;
// past this boundary a role is always one of the three canonical values.
package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

// roleAliases maps every role string the legacy backends are known to emit
// onto its canonical role. Keys are matched exactly, case included:
// "SuperAdmin" is not an alias and falls through to the safe default.
var roleAliases = map[string]domain.Role{
	"superadmin":       domain.RoleSuperAdmin,
	"super_admin":      domain.RoleSuperAdmin,
	"board":            domain.RoleBoardMember,
	"board_member":     domain.RoleBoardMember,
	"member":           domain.RoleCommunityMember,
	"community_member": domain.RoleCommunityMember,
}

// Role resolves a raw role string to its canonical role. Unrecognized or
// missing strings map to community_member so a malformed payload can never
// grant elevated rights.
func Role(raw string) domain.Role {
	if role, ok := roleAliases[raw]; ok {
		return role
	}
	return domain.RoleCommunityMember
}

// User converts a raw record into a canonical User, defaulting every absent
// field. Pure apart from the id fallback, which mints a fresh unique id for
// records that arrive without one.
func User(raw domain.RawUserRecord) domain.User {
	user := domain.User{
		ID:     raw.ID,
		Name:   displayName(raw),
		Email:  raw.Email,
		Role:   Role(raw.Role),
		Avatar: raw.Avatar,
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Email == "" {
		user.Email = syntheticEmail(user.Name)
	}
	if raw.CreatedAt != nil {
		user.CreatedAt = *raw.CreatedAt
	}
	if raw.UpdatedAt != nil {
		user.UpdatedAt = *raw.UpdatedAt
	}
	return user
}

// Users normalizes a batch of raw records.
func Users(raws []domain.RawUserRecord) []domain.User {
	users := make([]domain.User, len(raws))
	for i, raw := range raws {
		users[i] = User(raw)
	}
	return users
}

// displayName picks the record's name, joining a split first/last pair when
// no single name is present. Records with no name at all become "Unknown".
func displayName(raw domain.RawUserRecord) string {
	if raw.Name != "" {
		return raw.Name
	}
	joined := strings.TrimSpace(raw.FirstName + " " + raw.LastName)
	if joined != "" {
		return joined
	}
	return "Unknown"
}

// syntheticEmail derives a deterministic placeholder address from a name.
func syntheticEmail(name string) string {
	local := strings.ReplaceAll(strings.ToLower(name), " ", "")
	return local + "@example.com"
}
