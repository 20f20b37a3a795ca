package auth

import (
	"context"
	"sort"
)

// RoleResolver returns the roles currently held by a user
type RoleResolver interface {
	RolesOf(ctx context.Context, id UserID) ([]Role, error)
}

// NormalizeRoles drops unknown and duplicate roles and orders the rest by name
func NormalizeRoles(roles []Role) []Role {
	seen := make(map[Role]bool, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !r.Valid() || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
