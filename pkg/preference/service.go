package preference

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/subscription"
)

// Service applies guarded preference changes. The guard decision and the
// write are delegated to the store as one conditional operation; the
// service's own CanChange call exists only to read the current decision
// (e.g. for display) without mutating anything.
type Service struct {
	store Store
	subs  subscription.Store
	log   *slog.Logger
	now   func() time.Time
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

// NewService creates the preference service. Panics on nil dependencies
// to fail fast during initialization.
func NewService(store Store, subs subscription.Store, opts ...ServiceOption) *Service {
	if store == nil {
		panic("preference: Store is required")
	}
	if subs == nil {
		panic("preference: subscription store is required")
	}

	s := &Service{
		store: store,
		subs:  subs,
		log:   slog.Default(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the student's current preference.
func (s *Service) Get(ctx context.Context, studentID uuid.UUID) (*Preference, error) {
	return s.store.Get(ctx, studentID)
}

// Check returns the current lock decision without writing anything.
func (s *Service) Check(ctx context.Context, studentID uuid.UUID) (Decision, error) {
	sub, err := s.activeSubscription(ctx, studentID)
	if err != nil {
		return Decision{}, err
	}

	pref, err := s.store.Get(ctx, studentID)
	if err != nil && !errors.Is(err, ErrPreferenceNotFound) {
		return Decision{}, err
	}

	var lastChange *time.Time
	if pref != nil {
		lastChange = pref.LastChangeAt
	}
	return CanChange(lastChange, sub), nil
}

// Update applies a discipline/level change under the once-per-period lock.
// Denials come back as *LockedError with the next eligible date.
func (s *Service) Update(ctx context.Context, ch Change) (*Preference, error) {
	if ch.StudentID == uuid.Nil || ch.DisciplineID == uuid.Nil || ch.LevelID == uuid.Nil {
		return nil, ErrInvalidPreference
	}

	sub, err := s.activeSubscription(ctx, ch.StudentID)
	if err != nil {
		return nil, err
	}

	// The lock only applies to students with an active subscription; the
	// store re-checks the window inside its own write.
	var periodStart *time.Time
	var nextEligibleAt time.Time
	if sub != nil && sub.IsActive() {
		periodStart = &sub.CurrentPeriodStart
		nextEligibleAt = sub.CurrentPeriodEnd
	}

	updated, err := s.store.ApplyGuarded(ctx, ch, periodStart, nextEligibleAt, s.now())
	if err != nil {
		if locked, ok := IsLocked(err); ok {
			s.log.DebugContext(ctx, "preference change locked",
				slog.String("student_id", ch.StudentID.String()),
				slog.Time("next_eligible_at", locked.NextEligibleAt))
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "preference changed",
		slog.String("student_id", ch.StudentID.String()),
		slog.String("discipline_id", ch.DisciplineID.String()),
		slog.String("level_id", ch.LevelID.String()))
	return updated, nil
}

func (s *Service) activeSubscription(ctx context.Context, studentID uuid.UUID) (*subscription.Subscription, error) {
	sub, err := s.subs.ActiveBySubscriber(ctx, studentID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, nil
	}
	return sub, err
}
