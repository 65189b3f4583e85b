// Package store persists revenue types in memory or PostgreSQL.
package store

import (
	"slices"

	"revenuehub/internal/revenue/models"
)

// Filter narrows revenue type listings. A nil Districts slice means every
// district; an empty non-nil slice matches nothing.
type Filter struct {
	Districts  []string
	ActiveOnly bool
	Category   models.Category
	Frequency  models.Frequency
}

func (f Filter) empty() bool {
	return f.Districts != nil && len(f.Districts) == 0
}

func (f Filter) matches(rt *models.RevenueType) bool {
	if f.Districts != nil && !slices.Contains(f.Districts, rt.District) {
		return false
	}
	if f.ActiveOnly && !rt.IsActive {
		return false
	}
	if f.Category != "" && rt.Category != f.Category {
		return false
	}
	if f.Frequency != "" && rt.Frequency != f.Frequency {
		return false
	}
	return true
}

