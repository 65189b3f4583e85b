// Package store persists collections in memory or PostgreSQL.
package store

import (
	"slices"
	"time"

	"revenuehub/internal/collection/models"
	id "revenuehub/pkg/domain"
)

// Filter narrows collection listings. A nil Districts slice means every
// district and an empty non-nil one matches nothing; BusinessIDs works the
// same way. From and To bound CollectedAt inclusively when set.
type Filter struct {
	Districts     []string
	BusinessIDs   []id.BusinessID
	Status        models.Status
	Method        models.PaymentMethod
	CollectorID   *id.UserID
	BusinessID    *id.BusinessID
	RevenueTypeID *id.RevenueTypeID
	Flagged       *bool
	From          time.Time
	To            time.Time
}

func (f Filter) empty() bool {
	return (f.Districts != nil && len(f.Districts) == 0) || (f.BusinessIDs != nil && len(f.BusinessIDs) == 0)
}

func (f Filter) matches(c *models.Collection) bool {
	if f.Districts != nil && !slices.Contains(f.Districts, c.District) {
		return false
	}
	if f.BusinessIDs != nil && !containsBusiness(f.BusinessIDs, c.BusinessID) {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Method != "" && c.PaymentMethod != f.Method {
		return false
	}
	if f.CollectorID != nil && !c.RecordedBy(*f.CollectorID) {
		return false
	}
	if f.BusinessID != nil && c.BusinessID != *f.BusinessID {
		return false
	}
	if f.RevenueTypeID != nil && c.RevenueTypeID != *f.RevenueTypeID {
		return false
	}
	if f.Flagged != nil && c.Flagged != *f.Flagged {
		return false
	}
	if !f.From.IsZero() && c.CollectedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.CollectedAt.After(f.To) {
		return false
	}
	return true
}


func containsBusiness(ids []id.BusinessID, v id.BusinessID) bool {
	for _, x := range ids {
		if x == v {
			return true
		}
	}
	return false
}
