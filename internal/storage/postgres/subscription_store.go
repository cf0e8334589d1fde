package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitlab/coachbill/pkg/pg"
	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/subscription"
)

// SubscriptionStore implements subscription.Store on Postgres. The
// at-most-one-active-per-subscriber invariant is enforced by a partial
// unique index on (subscriber_id) WHERE status = 'active', so concurrent
// writers race on the index instead of on application state.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore returns a store backed by the subscriptions table.
func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	if pool == nil {
		panic("postgres.NewSubscriptionStore: nil pool")
	}
	return &SubscriptionStore{pool: pool}
}

const subscriptionColumns = `id, subscriber_id, plan_id, status, current_period_start,
current_period_end, cancel_at_period_end, feature_snapshot, last_payment_id,
created_at, updated_at, canceled_at`

func (s *SubscriptionStore) ActiveBySubscriber(ctx context.Context, subscriberID uuid.UUID) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE subscriber_id = $1 AND status = 'active'`, subscriptionColumns)
	sub, err := scanSubscription(s.pool.QueryRow(ctx, query, subscriberID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionStore) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE subscriber_id = $1 ORDER BY created_at DESC, id DESC`, subscriptionColumns)
	rows, err := s.pool.Query(ctx, query, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *SubscriptionStore) CreateReplacingActive(ctx context.Context, sub *subscription.Subscription) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	// Retire the current active row first; the insert below then claims
	// the partial unique index slot. A concurrent writer who got between
	// the two statements trips 23505 and is reported as a conflict.
	_, err = tx.Exec(ctx, `
UPDATE subscriptions
SET status = 'canceled', canceled_at = $2, updated_at = $2
WHERE subscriber_id = $1 AND status = 'active'`,
		sub.SubscriberID, sub.CreatedAt)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(sub.FeatureSnapshot)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO subscriptions (id, subscriber_id, plan_id, status, current_period_start,
    current_period_end, cancel_at_period_end, feature_snapshot, last_payment_id,
    created_at, updated_at, canceled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sub.ID, sub.SubscriberID, sub.PlanID, string(sub.Status),
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
		snapshot, sub.LastPaymentID, sub.CreatedAt, sub.UpdatedAt, sub.CanceledAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return subscription.ErrConflict
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return subscription.ErrConflict
		}
		return err
	}
	return nil
}

func (s *SubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	snapshot, err := json.Marshal(sub.FeatureSnapshot)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE subscriptions
SET plan_id = $2, status = $3, current_period_start = $4, current_period_end = $5,
    cancel_at_period_end = $6, feature_snapshot = $7, last_payment_id = $8,
    updated_at = $9, canceled_at = $10
WHERE id = $1`,
		sub.ID, sub.PlanID, string(sub.Status), sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, snapshot,
		sub.LastPaymentID, sub.UpdatedAt, sub.CanceledAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return subscription.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrSubscriptionNotFound
	}
	return nil
}

func (s *SubscriptionStore) FindByPaymentID(ctx context.Context, externalPaymentID string) (*subscription.Subscription, error) {
	if externalPaymentID == "" {
		return nil, subscription.ErrSubscriptionNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE last_payment_id = $1`, subscriptionColumns)
	sub, err := scanSubscription(s.pool.QueryRow(ctx, query, externalPaymentID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub        subscription.Subscription
		status     string
		snapshot   []byte
		canceledAt *time.Time
	)
	err := row.Scan(
		&sub.ID, &sub.SubscriberID, &sub.PlanID, &status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
		&snapshot, &sub.LastPaymentID, &sub.CreatedAt, &sub.UpdatedAt, &canceledAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = subscription.Status(status)
	sub.CanceledAt = canceledAt
	if len(snapshot) > 0 {
		var fs plan.FeatureSet
		if err := json.Unmarshal(snapshot, &fs); err != nil {
			return nil, errors.Join(subscription.ErrInvalidSubscription, err)
		}
		sub.FeatureSnapshot = fs
	}
	return &sub, nil
}
