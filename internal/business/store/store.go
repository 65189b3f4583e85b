// Package store persists businesses in memory or PostgreSQL.
package store

import (
	"slices"
	"strings"

	"revenuehub/internal/business/models"
	id "revenuehub/pkg/domain"
)

// Filter narrows business listings. A nil Districts slice means every
// district; an empty non-nil slice matches nothing. A non-nil IDs slice
// restricts the result to those businesses.
type Filter struct {
	Districts []string
	IDs       []id.BusinessID
	OwnerID   *id.UserID
	Status    models.BusinessStatus
	Category  string
}

func (f Filter) empty() bool {
	return (f.Districts != nil && len(f.Districts) == 0) || (f.IDs != nil && len(f.IDs) == 0)
}

func (f Filter) matches(b *models.Business) bool {
	if f.Districts != nil && !slices.Contains(f.Districts, b.District) {
		return false
	}
	if f.IDs != nil && !containsID(f.IDs, b.ID) {
		return false
	}
	if f.OwnerID != nil && !b.OwnedBy(*f.OwnerID) {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Category != "" && !strings.EqualFold(b.Category, f.Category) {
		return false
	}
	return true
}


func containsID(ids []id.BusinessID, v id.BusinessID) bool {
	for _, x := range ids {
		if x == v {
			return true
		}
	}
	return false
}
