package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"revenuehub/internal/business/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

// Referrers reports whether other records still point at a business. Delete
// consults it where Postgres relies on the collections foreign key.
type Referrers interface {
	ReferencesBusiness(ctx context.Context, businessID id.BusinessID) (bool, error)
}

// InMemory is a mutex-guarded business store.
type InMemory struct {
	mu         sync.RWMutex
	businesses map[id.BusinessID]*models.Business
	codes      map[string]id.BusinessID
	referrers  Referrers
}

type InMemoryOption func(*InMemory)

// WithReferrers makes Delete refuse businesses that referrers still point at.
func WithReferrers(r Referrers) InMemoryOption {
	return func(s *InMemory) {
		s.referrers = r
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{
		businesses: make(map[id.BusinessID]*models.Business),
		codes:      make(map[string]id.BusinessID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(_ context.Context, b *models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[b.Code]; ok {
		return fmt.Errorf("business code %s: %w", b.Code, sentinel.ErrConflict)
	}
	if _, ok := s.businesses[b.ID]; ok {
		return fmt.Errorf("business id: %w", sentinel.ErrConflict)
	}
	s.businesses[b.ID] = clone(b)
	s.codes[b.Code] = b.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, businessID id.BusinessID) (*models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(b), nil
}

// List returns matching businesses ordered by name.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Business, error) {
	out := make([]*models.Business, 0)
	if f.empty() {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.businesses {
		if f.matches(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, businessID id.BusinessID, validate func(*models.Business) error, apply func(*models.Business)) (*models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(b)
	if err := validate(working); err != nil {
		return nil, err
	}
	apply(working)
	s.businesses[businessID] = working
	return clone(working), nil
}

// RecordPayment advances the last payment date of a business.
func (s *InMemory) RecordPayment(_ context.Context, businessID id.BusinessID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return sentinel.ErrNotFound
	}
	b.RecordPayment(at)
	return nil
}

func (s *InMemory) Delete(ctx context.Context, businessID id.BusinessID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.referrers != nil {
		referenced, err := s.referrers.ReferencesBusiness(ctx, businessID)
		if err != nil {
			return fmt.Errorf("check business references: %w", err)
		}
		if referenced {
			return fmt.Errorf("business %s has collections: %w", b.Code, sentinel.ErrConflict)
		}
	}
	delete(s.codes, b.Code)
	delete(s.businesses, businessID)
	return nil
}

func clone(b *models.Business) *models.Business {
	c := *b
	if b.OwnerUserID != nil {
		owner := *b.OwnerUserID
		c.OwnerUserID = &owner
	}
	if b.LastPaymentAt != nil {
		at := *b.LastPaymentAt
		c.LastPaymentAt = &at
	}
	return &c
}
