package store

import (
	"context"
	"sync"

	"github.com/onmission/matchd/internal/match"
)

// InMemoryStore is an in-memory implementation of Store.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]*match.Profile
	assignments map[string]*match.Assignment
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles:    make(map[string]*match.Profile),
		assignments: make(map[string]*match.Assignment),
	}
}

// GetProfile retrieves a profile by ID.
func (s *InMemoryStore) GetProfile(ctx context.Context, id string) (*match.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}

	profileCopy := *p
	return &profileCopy, nil
}

// UpsertProfile inserts or replaces a profile by ID.
func (s *InMemoryStore) UpsertProfile(ctx context.Context, p *match.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profileCopy := *p
	s.profiles[p.ID] = &profileCopy
	return nil
}

// DeleteProfile removes a profile by ID.
func (s *InMemoryStore) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return ErrProfileNotFound
	}
	delete(s.profiles, id)
	return nil
}

// GetAssignment retrieves an assignment by ID regardless of status.
func (s *InMemoryStore) GetAssignment(ctx context.Context, id string) (*match.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}

	assignmentCopy := *a
	return &assignmentCopy, nil
}

// ListActive returns copies of all active assignments.
func (s *InMemoryStore) ListActive(ctx context.Context) ([]match.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]match.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if a.Status != match.StatusActive {
			continue
		}
		result = append(result, *a)
	}
	return result, nil
}

// UpsertAssignment inserts or replaces an assignment by ID.
func (s *InMemoryStore) UpsertAssignment(ctx context.Context, a *match.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignmentCopy := *a
	s.assignments[a.ID] = &assignmentCopy
	return nil
}

// DeleteAssignment removes an assignment by ID.
func (s *InMemoryStore) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[id]; !ok {
		return ErrAssignmentNotFound
	}
	delete(s.assignments, id)
	return nil
}
