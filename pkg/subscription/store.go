package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence interface for the subscription ledger.
type Store interface {
	// ActiveBySubscriber returns the subscriber's row in status active.
	// Returns ErrSubscriptionNotFound if there is none.
	ActiveBySubscriber(ctx context.Context, subscriberID uuid.UUID) (*Subscription, error)

	// ListBySubscriber returns every ledger row for the subscriber,
	// newest first.
	ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]Subscription, error)

	// CreateReplacingActive cancels the subscriber's current active row (if
	// any) and inserts the new one as a single atomic operation. Two
	// concurrent calls must not both succeed; the loser gets ErrConflict.
	CreateReplacingActive(ctx context.Context, sub *Subscription) error

	// Update persists changes to an existing row.
	Update(ctx context.Context, sub *Subscription) error

	// FindByPaymentID returns the row whose LastPaymentID matches the given
	// external payment id. Returns ErrSubscriptionNotFound if no row has
	// seen that payment. Used to deduplicate webhook redelivery.
	FindByPaymentID(ctx context.Context, externalPaymentID string) (*Subscription, error)
}
