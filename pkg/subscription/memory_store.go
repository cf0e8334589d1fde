package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development. It enforces the same at-most-one-active semantics as the
// Postgres store, including conflict detection under concurrency.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Subscription // by subscription ID
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) ActiveBySubscriber(_ context.Context, subscriberID uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.activeLocked(subscriberID); cur != nil {
		cp := *cur
		return &cp, nil
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) ListBySubscriber(_ context.Context, subscriberID uuid.UUID) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Subscription
	for _, row := range s.rows {
		if row.SubscriberID == subscriberID {
			out = append(out, *row)
		}
	}
	// Newest first, matching the Postgres store's ORDER BY.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateReplacingActive(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[sub.ID]; exists {
		return ErrConflict
	}

	now := time.Now().UTC()
	if cur := s.activeLocked(sub.SubscriberID); cur != nil {
		cur.Status = StatusCanceled
		cur.CanceledAt = &now
		cur.UpdatedAt = now
	}

	cp := *sub
	s.rows[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}

	// Never allow an update to create a second active row.
	if sub.Status == StatusActive {
		if cur := s.activeLocked(sub.SubscriberID); cur != nil && cur.ID != sub.ID {
			return ErrConflict
		}
	}

	cp := *sub
	s.rows[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByPaymentID(_ context.Context, externalPaymentID string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if externalPaymentID == "" {
		return nil, ErrSubscriptionNotFound
	}
	for _, row := range s.rows {
		if row.LastPaymentID == externalPaymentID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) activeLocked(subscriberID uuid.UUID) *Subscription {
	for _, row := range s.rows {
		if row.SubscriberID == subscriberID && row.Status == StatusActive {
			return row
		}
	}
	return nil
}
