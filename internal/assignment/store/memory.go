package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"revenuehub/internal/assignment/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded assignment store.
type InMemory struct {
	mu          sync.RWMutex
	assignments map[id.AssignmentID]*models.Assignment
	codes       map[string]id.AssignmentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		assignments: make(map[id.AssignmentID]*models.Assignment),
		codes:       make(map[string]id.AssignmentID),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[a.Code]; ok {
		return fmt.Errorf("assignment code %s: %w", a.Code, sentinel.ErrConflict)
	}
	if _, ok := s.assignments[a.ID]; ok {
		return fmt.Errorf("assignment id: %w", sentinel.ErrConflict)
	}
	s.assignments[a.ID] = clone(a)
	s.codes[a.Code] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// List returns matching assignments, most recent start date first.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Assignment, error) {
	out := make([]*models.Assignment, 0)
	if f.empty() {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if f.matches(a) {
			out = append(out, clone(a))
		}
	}
	sortAssignments(out)
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, assignmentID id.AssignmentID, validate func(*models.Assignment) error, apply func(*models.Assignment)) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(a)
	if err := validate(working); err != nil {
		return nil, err
	}
	apply(working)
	s.assignments[assignmentID] = working
	return clone(working), nil
}

func (s *InMemory) Delete(_ context.Context, assignmentID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.codes, a.Code)
	delete(s.assignments, assignmentID)
	return nil
}

// ActiveBusinessIDs lists the businesses a collector's assignments cover at
// the given time. Zone assignments contribute nothing.
func (s *InMemory) ActiveBusinessIDs(_ context.Context, collectorID id.UserID, at time.Time) ([]id.BusinessID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.BusinessID]bool)
	out := make([]id.BusinessID, 0)
	for _, a := range s.assignments {
		if a.CollectorID != collectorID || a.BusinessID == nil || !a.CoversAt(at) {
			continue
		}
		if !seen[*a.BusinessID] {
			seen[*a.BusinessID] = true
			out = append(out, *a.BusinessID)
		}
	}
	return out, nil
}

func sortAssignments(out []*models.Assignment) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].Code < out[j].Code
	})
}

func clone(a *models.Assignment) *models.Assignment {
	c := *a
	if a.BusinessID != nil {
		businessID := *a.BusinessID
		c.BusinessID = &businessID
	}
	if a.EndDate != nil {
		end := *a.EndDate
		c.EndDate = &end
	}
	return &c
}
