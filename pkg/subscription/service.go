package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/plan"
)

// Service owns every mutation of the subscription ledger. Reads go
// through DeriveAccessStatus and the entitlement resolver; writes are
// explicit operations here, each of which re-validates current status
// before applying.
type Service struct {
	store   Store
	catalog *plan.Catalog
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures optional Service settings.
type ServiceOption func(*Service)

// WithClock overrides the wall clock, primarily for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for operational events.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the ledger service. Panics on nil dependencies to
// fail fast during initialization.
func NewService(store Store, catalog *plan.Catalog, opts ...ServiceOption) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if catalog == nil {
		panic("subscription: plan catalog is required")
	}

	s := &Service{
		store:   store,
		catalog: catalog,
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChangePlan moves the subscriber onto a new plan: the current active row
// (if any) is canceled and a fresh row inserted in one storage transaction.
// A write that races another change-plan for the same subscriber is retried
// once after re-reading; a second conflict is returned as ErrConflict for
// the caller to surface as 409.
func (s *Service) ChangePlan(ctx context.Context, subscriberID uuid.UUID, newPlanID string) (*Subscription, error) {
	p, err := s.catalog.Get(newPlanID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.ActiveBySubscriber(ctx, subscriberID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}
	if current != nil && current.PlanID == newPlanID {
		return nil, ErrSamePlan
	}

	sub, err := s.createActive(ctx, subscriberID, p)
	if errors.Is(err, ErrConflict) {
		// Another writer won the race; re-read and try once more so a
		// double-submitted upgrade still lands deterministically.
		current, rerr := s.store.ActiveBySubscriber(ctx, subscriberID)
		if rerr != nil && !errors.Is(rerr, ErrSubscriptionNotFound) {
			return nil, rerr
		}
		if current != nil && current.PlanID == newPlanID {
			return nil, ErrSamePlan
		}
		sub, err = s.createActive(ctx, subscriberID, p)
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription plan changed",
		slog.String("subscriber_id", subscriberID.String()),
		slog.String("plan_id", newPlanID),
		slog.String("subscription_id", sub.ID.String()))
	return sub, nil
}

func (s *Service) createActive(ctx context.Context, subscriberID uuid.UUID, p plan.Plan) (*Subscription, error) {
	now := s.now()
	sub := &Subscription{
		ID:                 uuid.New(),
		SubscriberID:       subscriberID,
		PlanID:             p.ID,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd(now, p.Interval),
		FeatureSnapshot:    p.Features,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateReplacingActive(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelAtPeriodEnd records a cancellation intent. The subscription stays
// active until the current period elapses; only the intent flag changes.
func (s *Service) CancelAtPeriodEnd(ctx context.Context, subscriberID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.ActiveBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil // idempotent: intent already recorded
	}

	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = s.now()
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription cancellation scheduled",
		slog.String("subscriber_id", subscriberID.String()),
		slog.Time("effective_at", sub.CurrentPeriodEnd))
	return sub, nil
}

// Reactivate clears a pending cancellation on an active subscription.
// Calling it on a subscription without cancel intent is illegal.
func (s *Service) Reactivate(ctx context.Context, subscriberID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.ActiveBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if !sub.CancelAtPeriodEnd {
		return nil, errors.Join(ErrAlreadyActive, ErrNotCancelable)
	}

	sub.CancelAtPeriodEnd = false
	sub.UpdatedAt = s.now()
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ApplyPaymentEvent ingests one normalized payment event. Redelivered
// events (same ExternalPaymentID) are acknowledged without moving the
// ledger. A successful payment renews or recovers the subscriber's latest
// row; a failed payment degrades an active row to past_due.
func (s *Service) ApplyPaymentEvent(ctx context.Context, ev PaymentEvent) error {
	if ev.ExternalPaymentID == "" {
		return fmt.Errorf("payment event missing external payment id")
	}

	if _, err := s.store.FindByPaymentID(ctx, ev.ExternalPaymentID); err == nil {
		s.log.DebugContext(ctx, "duplicate payment event ignored",
			slog.String("external_payment_id", ev.ExternalPaymentID))
		return nil
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return err
	}

	switch ev.Outcome {
	case PaymentSucceeded:
		return s.applyPaymentSucceeded(ctx, ev)
	case PaymentFailed:
		return s.applyPaymentFailed(ctx, ev)
	default:
		return fmt.Errorf("unknown payment outcome %q", ev.Outcome)
	}
}

func (s *Service) applyPaymentSucceeded(ctx context.Context, ev PaymentEvent) error {
	// Renew the active row when there is one; otherwise recover the
	// subscriber's newest row (past_due, unpaid or canceled).
	sub, err := s.store.ActiveBySubscriber(ctx, ev.SubscriberID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		sub, err = s.latestRow(ctx, ev.SubscriberID)
	}
	if err != nil {
		return err
	}

	if sub.Status != StatusActive {
		if !CanTransition(sub.Status, StatusActive) {
			return errors.Join(ErrInvalidTransition,
				fmt.Errorf("cannot activate subscription in status %s", sub.Status))
		}
		sub.Status = StatusActive
		sub.CanceledAt = nil
	}

	sub.CurrentPeriodStart = ev.PeriodStart
	sub.CurrentPeriodEnd = ev.PeriodEnd
	sub.LastPaymentID = ev.ExternalPaymentID
	sub.UpdatedAt = s.now()
	return s.store.Update(ctx, sub)
}

func (s *Service) applyPaymentFailed(ctx context.Context, ev PaymentEvent) error {
	sub, err := s.store.ActiveBySubscriber(ctx, ev.SubscriberID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		// Nothing to degrade; the failure is still acknowledged so the
		// gateway stops retrying.
		return nil
	}
	if err != nil {
		return err
	}

	sub.Status = StatusPastDue
	sub.LastPaymentID = ev.ExternalPaymentID
	sub.UpdatedAt = s.now()
	if err := s.store.Update(ctx, sub); err != nil {
		return err
	}

	s.log.WarnContext(ctx, "subscription past due after failed payment",
		slog.String("subscriber_id", ev.SubscriberID.String()),
		slog.String("external_payment_id", ev.ExternalPaymentID))
	return nil
}

// latestRow returns the subscriber's newest ledger row regardless of status.
func (s *Service) latestRow(ctx context.Context, subscriberID uuid.UUID) (*Subscription, error) {
	rows, err := s.store.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrSubscriptionNotFound
	}
	return &rows[0], nil
}

// periodEnd computes the paid-through bound for a plan interval starting
// at the given instant. Free plans roll on a monthly window so period
// bounds are always present in API responses.
func periodEnd(start time.Time, interval plan.BillingInterval) time.Time {
	switch interval {
	case plan.BillingIntervalAnnual:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}
