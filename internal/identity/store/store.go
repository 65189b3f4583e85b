// Package store persists users in memory or PostgreSQL.
package store

import (
	"slices"

	"revenuehub/internal/identity/models"
	id "revenuehub/pkg/domain"
)

// Filter narrows user listings. A nil Districts slice means every district;
// an empty non-nil slice matches nothing.
type Filter struct {
	Districts []string
	Role      id.Role
	Status    models.UserStatus
}

func (f Filter) matches(u *models.User) bool {
	if f.Districts != nil && !slices.Contains(f.Districts, u.District) {
		return false
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	return true
}

