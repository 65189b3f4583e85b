package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"revenuehub/internal/geo/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded district store for development and tests.
type InMemory struct {
	mu        sync.RWMutex
	districts map[id.DistrictID]*models.District
}

func NewInMemory() *InMemory {
	return &InMemory{districts: make(map[id.DistrictID]*models.District)}
}

// Create inserts d. Names compare case-insensitively; codes are stored upper-case.
func (s *InMemory) Create(_ context.Context, d *models.District) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.districts[d.ID]; ok {
		return fmt.Errorf("district id: %w", sentinel.ErrConflict)
	}
	if err := s.checkUniqueLocked(d); err != nil {
		return err
	}
	clone := *d
	s.districts[d.ID] = &clone
	return nil
}

func (s *InMemory) checkUniqueLocked(d *models.District) error {
	for _, existing := range s.districts {
		if existing.ID == d.ID {
			continue
		}
		if strings.EqualFold(existing.Name, d.Name) {
			return fmt.Errorf("district name: %w", sentinel.ErrConflict)
		}
		if existing.Code == d.Code {
			return fmt.Errorf("district code: %w", sentinel.ErrConflict)
		}
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, districtID id.DistrictID) (*models.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.districts[districtID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.districts {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			clone := *d
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns districts sorted by name. A nil names slice means every
// district; an empty one matches nothing.
func (s *InMemory) List(_ context.Context, names []string) ([]*models.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.District, 0, len(s.districts))
	if names != nil && len(names) == 0 {
		return out, nil
	}
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[strings.ToLower(n)] = true
	}
	for _, d := range s.districts {
		if names != nil && !allowed[strings.ToLower(d.Name)] {
			continue
		}
		clone := *d
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Execute runs validate then apply on a copy while holding the write lock and
// stores the result. Nothing is written when validate fails.
func (s *InMemory) Execute(_ context.Context, districtID id.DistrictID, validate func(*models.District) error, apply func(*models.District)) (*models.District, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.districts[districtID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *d
	if err := validate(&working); err != nil {
		return nil, err
	}
	apply(&working)
	if err := s.checkUniqueLocked(&working); err != nil {
		return nil, err
	}
	s.districts[districtID] = &working
	result := working
	return &result, nil
}
