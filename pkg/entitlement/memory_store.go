package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRelationshipStore is an in-memory RelationshipStore for tests and
// local development.
type MemoryRelationshipStore struct {
	mu      sync.RWMutex
	coaches map[uuid.UUID]uuid.UUID // student -> coach
}

func NewMemoryRelationshipStore() *MemoryRelationshipStore {
	return &MemoryRelationshipStore{coaches: make(map[uuid.UUID]uuid.UUID)}
}

// Link sets the student's active coach, replacing any previous link.
func (s *MemoryRelationshipStore) Link(studentID, coachID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coaches[studentID] = coachID
}

// Unlink ends the student's active relationship.
func (s *MemoryRelationshipStore) Unlink(studentID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.coaches, studentID)
}

func (s *MemoryRelationshipStore) ActiveCoachForStudent(_ context.Context, studentID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coachID, ok := s.coaches[studentID]
	if !ok {
		return uuid.Nil, ErrNoActiveCoach
	}
	return coachID, nil
}

// MemoryTrialStore is an in-memory TrialStore for tests and local
// development.
type MemoryTrialStore struct {
	mu     sync.RWMutex
	trials map[uuid.UUID]time.Time
}

func NewMemoryTrialStore() *MemoryTrialStore {
	return &MemoryTrialStore{trials: make(map[uuid.UUID]time.Time)}
}

// SetTrial records the coach's trial end date.
func (s *MemoryTrialStore) SetTrial(coachID uuid.UUID, endsAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials[coachID] = endsAt
}

func (s *MemoryTrialStore) TrialEndsAt(_ context.Context, coachID uuid.UUID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endsAt, ok := s.trials[coachID]
	if !ok {
		return nil, nil
	}
	return &endsAt, nil
}
