package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"revenuehub/internal/revenue/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

// Referrers reports whether other records still point at a revenue type.
type Referrers interface {
	ReferencesRevenueType(ctx context.Context, revenueTypeID id.RevenueTypeID) (bool, error)
}

// InMemory is a mutex-guarded revenue type store.
type InMemory struct {
	mu        sync.RWMutex
	types     map[id.RevenueTypeID]*models.RevenueType
	referrers Referrers
}

type InMemoryOption func(*InMemory)

// WithReferrers makes Delete refuse revenue types that referrers still point
// at, matching the collections foreign key in Postgres.
func WithReferrers(r Referrers) InMemoryOption {
	return func(s *InMemory) {
		s.referrers = r
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{types: make(map[id.RevenueTypeID]*models.RevenueType)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(_ context.Context, rt *models.RevenueType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[rt.ID]; ok {
		return fmt.Errorf("revenue type id: %w", sentinel.ErrConflict)
	}
	if s.codeTaken(rt) {
		return fmt.Errorf("revenue type code %s: %w", rt.Code, sentinel.ErrConflict)
	}
	c := *rt
	s.types[rt.ID] = &c
	return nil
}

// codeTaken reports whether another revenue type in the same district uses rt's code.
func (s *InMemory) codeTaken(rt *models.RevenueType) bool {
	for _, existing := range s.types {
		if existing.ID != rt.ID && existing.Code == rt.Code && existing.District == rt.District {
			return true
		}
	}
	return false
}

func (s *InMemory) FindByID(_ context.Context, revenueTypeID id.RevenueTypeID) (*models.RevenueType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.types[revenueTypeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *rt
	return &c, nil
}

// List returns matching revenue types ordered by district then name.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.RevenueType, error) {
	out := make([]*models.RevenueType, 0)
	if f.empty() {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.types {
		if f.matches(rt) {
			c := *rt
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].District != out[j].District {
			return out[i].District < out[j].District
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, revenueTypeID id.RevenueTypeID, validate func(*models.RevenueType) error, apply func(*models.RevenueType)) (*models.RevenueType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.types[revenueTypeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *rt
	if err := validate(&working); err != nil {
		return nil, err
	}
	apply(&working)
	if s.codeTaken(&working) {
		return nil, fmt.Errorf("revenue type code %s: %w", working.Code, sentinel.ErrConflict)
	}
	s.types[revenueTypeID] = &working
	out := working
	return &out, nil
}

func (s *InMemory) Delete(ctx context.Context, revenueTypeID id.RevenueTypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.types[revenueTypeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.referrers != nil {
		referenced, err := s.referrers.ReferencesRevenueType(ctx, revenueTypeID)
		if err != nil {
			return fmt.Errorf("check revenue type references: %w", err)
		}
		if referenced {
			return fmt.Errorf("revenue type %s has collections: %w", rt.Code, sentinel.ErrConflict)
		}
	}
	delete(s.types, revenueTypeID)
	return nil
}
