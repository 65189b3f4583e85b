// Package store persists collector assignments in memory or PostgreSQL.
package store

import (
	"slices"

	"revenuehub/internal/assignment/models"
	id "revenuehub/pkg/domain"
)

// Filter narrows assignment listings. A nil Districts slice means every
// district; an empty non-nil slice matches nothing.
type Filter struct {
	Districts   []string
	CollectorID *id.UserID
	BusinessID  *id.BusinessID
	ActiveOnly  bool
}

func (f Filter) empty() bool {
	return f.Districts != nil && len(f.Districts) == 0
}

func (f Filter) matches(a *models.Assignment) bool {
	if f.Districts != nil && !slices.Contains(f.Districts, a.District) {
		return false
	}
	if f.CollectorID != nil && a.CollectorID != *f.CollectorID {
		return false
	}
	if f.BusinessID != nil && (a.BusinessID == nil || *a.BusinessID != *f.BusinessID) {
		return false
	}
	if f.ActiveOnly && !a.IsActive {
		return false
	}
	return true
}

