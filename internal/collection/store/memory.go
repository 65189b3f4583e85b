package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"revenuehub/internal/collection/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded collection store.
type InMemory struct {
	mu          sync.RWMutex
	collections map[id.CollectionID]*models.Collection
	receipts    map[string]id.CollectionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		collections: make(map[id.CollectionID]*models.Collection),
		receipts:    make(map[string]id.CollectionID),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[c.ReceiptCode]; ok {
		return fmt.Errorf("receipt code %s: %w", c.ReceiptCode, sentinel.ErrConflict)
	}
	if _, ok := s.collections[c.ID]; ok {
		return fmt.Errorf("collection id: %w", sentinel.ErrConflict)
	}
	s.collections[c.ID] = clone(c)
	s.receipts[c.ReceiptCode] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, collectionID id.CollectionID) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

// List returns matching collections, newest first.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Collection, error) {
	out := make([]*models.Collection, 0)
	if f.empty() {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if f.matches(c) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CollectedAt.Equal(out[j].CollectedAt) {
			return out[i].CollectedAt.After(out[j].CollectedAt)
		}
		return out[i].ReceiptCode < out[j].ReceiptCode
	})
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, collectionID id.CollectionID, validate func(*models.Collection) error, apply func(*models.Collection)) (*models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(c)
	if err := validate(working); err != nil {
		return nil, err
	}
	apply(working)
	s.collections[collectionID] = working
	return clone(working), nil
}

// ReferencesBusiness reports whether any collection was recorded against the business.
func (s *InMemory) ReferencesBusiness(_ context.Context, businessID id.BusinessID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.BusinessID == businessID {
			return true, nil
		}
	}
	return false, nil
}

// ReferencesRevenueType reports whether any collection uses the revenue type.
func (s *InMemory) ReferencesRevenueType(_ context.Context, revenueTypeID id.RevenueTypeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.RevenueTypeID == revenueTypeID {
			return true, nil
		}
	}
	return false, nil
}

func clone(c *models.Collection) *models.Collection {
	out := *c
	out.CollectorID = cloneUser(c.CollectorID)
	out.PaidBy = cloneUser(c.PaidBy)
	out.ValidatedBy = cloneUser(c.ValidatedBy)
	out.FlaggedBy = cloneUser(c.FlaggedBy)
	if c.ValidatedAt != nil {
		at := *c.ValidatedAt
		out.ValidatedAt = &at
	}
	if c.FlaggedAt != nil {
		at := *c.FlaggedAt
		out.FlaggedAt = &at
	}
	return &out
}

func cloneUser(u *id.UserID) *id.UserID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
