package subscription_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/subscription"
)

func testCatalog(t *testing.T) *plan.Catalog {
	t.Helper()

	c, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(
		plan.Plan{
			ID:       "coach_start_monthly",
			Name:     "Start",
			Audience: plan.AudienceCoach,
			Interval: plan.BillingIntervalMonthly,
			Tier:     1,
			Public:   true,
			Features: plan.FeatureSet{
				SchemaVersion:  plan.FeatureSchemaVersion,
				WorkoutBuilder: true,
			},
		},
		plan.Plan{
			ID:       "coach_power_monthly",
			Name:     "Power",
			Audience: plan.AudienceCoach,
			Interval: plan.BillingIntervalMonthly,
			Tier:     3,
			Public:   true,
			Features: plan.FeatureSet{
				SchemaVersion:  plan.FeatureSchemaVersion,
				ScoreLoading:   true,
				WorkoutBuilder: true,
			},
		},
		plan.Plan{
			ID:       "coach_power_annual",
			Name:     "Power Annual",
			Audience: plan.AudienceCoach,
			Interval: plan.BillingIntervalAnnual,
			Tier:     3,
			Public:   true,
			Features: plan.FeatureSet{
				SchemaVersion: plan.FeatureSchemaVersion,
				ScoreLoading:  true,
			},
		},
	))
	require.NoError(t, err)
	return c
}

func newTestService(t *testing.T) (*subscription.Service, *subscription.MemoryStore) {
	t.Helper()

	store := subscription.NewMemoryStore()
	svc := subscription.NewService(store, testCatalog(t),
		subscription.WithClock(func() time.Time { return now }))
	return svc, store
}

func TestService_ChangePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first subscription", func(t *testing.T) {
		t.Parallel()

		svc, store := newTestService(t)
		coachID := uuid.New()

		sub, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, now, sub.CurrentPeriodStart)
		assert.Equal(t, now.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
		// Features are snapshotted from the plan at creation time.
		assert.True(t, sub.FeatureSnapshot.Has(plan.FeatureScoreLoading))

		got, err := store.ActiveBySubscriber(ctx, coachID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("annual interval period", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)

		sub, err := svc.ChangePlan(ctx, uuid.New(), "coach_power_annual")
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(1, 0, 0), sub.CurrentPeriodEnd)
	})

	t.Run("replaces current active subscription", func(t *testing.T) {
		t.Parallel()

		svc, store := newTestService(t)
		coachID := uuid.New()

		first, err := svc.ChangePlan(ctx, coachID, "coach_start_monthly")
		require.NoError(t, err)

		second, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		rows, err := store.ListBySubscriber(ctx, coachID)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		active, err := store.ActiveBySubscriber(ctx, coachID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)

		for _, row := range rows {
			if row.ID == first.ID {
				assert.Equal(t, subscription.StatusCanceled, row.Status)
				assert.NotNil(t, row.CanceledAt)
			}
		}
	})

	t.Run("rejects same plan", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		coachID := uuid.New()

		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		_, err = svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		assert.ErrorIs(t, err, subscription.ErrSamePlan)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)

		_, err := svc.ChangePlan(ctx, uuid.New(), "coach_deleted")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})
}

func TestService_CancelAndReactivate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("cancel keeps status active until period end", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		coachID := uuid.New()

		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		sub, err := svc.CancelAtPeriodEnd(ctx, coachID)
		require.NoError(t, err)
		assert.True(t, sub.CancelAtPeriodEnd)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		coachID := uuid.New()

		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		_, err = svc.CancelAtPeriodEnd(ctx, coachID)
		require.NoError(t, err)
		sub, err := svc.CancelAtPeriodEnd(ctx, coachID)
		require.NoError(t, err)
		assert.True(t, sub.CancelAtPeriodEnd)
	})

	t.Run("reactivate clears cancel intent", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		coachID := uuid.New()

		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)
		_, err = svc.CancelAtPeriodEnd(ctx, coachID)
		require.NoError(t, err)

		sub, err := svc.Reactivate(ctx, coachID)
		require.NoError(t, err)
		assert.False(t, sub.CancelAtPeriodEnd)
	})

	t.Run("reactivate illegal without cancel intent", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		coachID := uuid.New()

		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		_, err = svc.Reactivate(ctx, coachID)
		assert.ErrorIs(t, err, subscription.ErrAlreadyActive)
	})

	t.Run("cancel without subscription", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)

		_, err := svc.CancelAtPeriodEnd(ctx, uuid.New())
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestService_ApplyPaymentEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	event := func(coachID uuid.UUID, paymentID string, outcome subscription.PaymentOutcome) subscription.PaymentEvent {
		return subscription.PaymentEvent{
			ExternalPaymentID: paymentID,
			SubscriberID:      coachID,
			Outcome:           outcome,
			PeriodStart:       now,
			PeriodEnd:         now.AddDate(0, 1, 0),
		}
	}

	t.Run("successful payment renews period", func(t *testing.T) {
		t.Parallel()

		svc, store := newTestService(t)
		coachID := uuid.New()
		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		ev := event(coachID, "pay_001", subscription.PaymentSucceeded)
		ev.PeriodEnd = now.AddDate(0, 2, 0)
		require.NoError(t, svc.ApplyPaymentEvent(ctx, ev))

		sub, err := store.ActiveBySubscriber(ctx, coachID)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 2, 0), sub.CurrentPeriodEnd)
		assert.Equal(t, "pay_001", sub.LastPaymentID)
	})

	t.Run("failed payment degrades to past_due", func(t *testing.T) {
		t.Parallel()

		svc, store := newTestService(t)
		coachID := uuid.New()
		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		require.NoError(t, svc.ApplyPaymentEvent(ctx, event(coachID, "pay_002", subscription.PaymentFailed)))

		_, err = store.ActiveBySubscriber(ctx, coachID)
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)

		rows, err := store.ListBySubscriber(ctx, coachID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, subscription.StatusPastDue, rows[0].Status)
	})

	t.Run("recovery from past_due", func(t *testing.T) {
		t.Parallel()

		svc, store := newTestService(t)
		coachID := uuid.New()
		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		require.NoError(t, svc.ApplyPaymentEvent(ctx, event(coachID, "pay_003", subscription.PaymentFailed)))
		require.NoError(t, svc.ApplyPaymentEvent(ctx, event(coachID, "pay_004", subscription.PaymentSucceeded)))

		sub, err := store.ActiveBySubscriber(ctx, coachID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("redelivered event is a no-op", func(t *testing.T) {
		t.Parallel()

		svc, store := newTestService(t)
		coachID := uuid.New()
		_, err := svc.ChangePlan(ctx, coachID, "coach_power_monthly")
		require.NoError(t, err)

		ev := event(coachID, "pay_005", subscription.PaymentSucceeded)
		require.NoError(t, svc.ApplyPaymentEvent(ctx, ev))

		before, err := store.ActiveBySubscriber(ctx, coachID)
		require.NoError(t, err)

		// Same external payment id delivered again, even with different bounds.
		ev.PeriodEnd = now.AddDate(0, 6, 0)
		require.NoError(t, svc.ApplyPaymentEvent(ctx, ev))

		after, err := store.ActiveBySubscriber(ctx, coachID)
		require.NoError(t, err)
		assert.Equal(t, before.CurrentPeriodEnd, after.CurrentPeriodEnd)
	})

	t.Run("failed payment with no subscription is acknowledged", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		assert.NoError(t, svc.ApplyPaymentEvent(ctx, event(uuid.New(), "pay_006", subscription.PaymentFailed)))
	})

	t.Run("missing payment id is rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		err := svc.ApplyPaymentEvent(ctx, subscription.PaymentEvent{SubscriberID: uuid.New()})
		assert.Error(t, err)
	})
}

// TestAtMostOneActiveInvariant drives the service through random operation
// sequences and asserts the ledger never holds two active rows for the
// same subscriber at any point.
func TestAtMostOneActiveInvariant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rng := rand.New(rand.NewSource(42))
	svc, store := newTestService(t)
	subscribers := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	plans := []string{"coach_start_monthly", "coach_power_monthly", "coach_power_annual"}

	for i := range 500 {
		coachID := subscribers[rng.Intn(len(subscribers))]

		switch rng.Intn(4) {
		case 0:
			_, _ = svc.ChangePlan(ctx, coachID, plans[rng.Intn(len(plans))])
		case 1:
			_, _ = svc.CancelAtPeriodEnd(ctx, coachID)
		case 2:
			_ = svc.ApplyPaymentEvent(ctx, subscription.PaymentEvent{
				ExternalPaymentID: uuid.NewString(),
				SubscriberID:      coachID,
				Outcome:           subscription.PaymentFailed,
			})
		case 3:
			_ = svc.ApplyPaymentEvent(ctx, subscription.PaymentEvent{
				ExternalPaymentID: uuid.NewString(),
				SubscriberID:      coachID,
				Outcome:           subscription.PaymentSucceeded,
				PeriodStart:       now,
				PeriodEnd:         now.AddDate(0, 1, 0),
			})
		}

		for _, id := range subscribers {
			rows, err := store.ListBySubscriber(ctx, id)
			require.NoError(t, err)

			active := 0
			for _, row := range rows {
				if row.Status == subscription.StatusActive {
					active++
				}
			}
			require.LessOrEqual(t, active, 1, "step %d: subscriber %s has %d active rows", i, id, active)
		}
	}
}
