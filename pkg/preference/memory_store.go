package preference

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development. It
// applies the same guarded-write semantics as the Postgres store.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Preference
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]*Preference)}
}

func (s *MemoryStore) Get(_ context.Context, studentID uuid.UUID) (*Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[studentID]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *MemoryStore) ApplyGuarded(_ context.Context, ch Change, periodStart *time.Time, nextEligibleAt time.Time, now time.Time) (*Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.rows[ch.StudentID]
	if exists && periodStart != nil && row.LastChangeAt != nil && !row.LastChangeAt.Before(*periodStart) {
		return nil, &LockedError{NextEligibleAt: nextEligibleAt}
	}

	changeAt := now
	updated := &Preference{
		StudentID:    ch.StudentID,
		DisciplineID: ch.DisciplineID,
		LevelID:      ch.LevelID,
		LastChangeAt: &changeAt,
		UpdatedAt:    now,
	}
	s.rows[ch.StudentID] = updated

	cp := *updated
	return &cp, nil
}
