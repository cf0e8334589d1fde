// Package scorelog holds the logged lift results behind the score
// loading feature. The package itself does no entitlement checking;
// the feature gate sits in front of it at the API boundary.
package scorelog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Score is one logged lift result.
type Score struct {
	ID         uuid.UUID `json:"id"`
	StudentID  uuid.UUID `json:"studentId"`
	Exercise   string    `json:"exercise"`
	Reps       int       `json:"reps"`
	WeightKg   float64   `json:"weightKg"`
	RecordedAt time.Time `json:"recordedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists logged scores.
type Store interface {
	Create(ctx context.Context, score *Score) error
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]Score, error)
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[uuid.UUID][]Score
}

// NewMemoryStore creates an empty in-memory score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[uuid.UUID][]Score)}
}

func (s *MemoryStore) Create(_ context.Context, score *Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.StudentID] = append(s.scores[score.StudentID], *score)
	return nil
}

func (s *MemoryStore) ListByStudent(_ context.Context, studentID uuid.UUID, limit int) ([]Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]Score, len(s.scores[studentID]))
	copy(scores, s.scores[studentID])
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].RecordedAt.After(scores[j].RecordedAt)
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}
