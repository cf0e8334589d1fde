package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/plan"
)

// Subscription is one row of the subscription ledger. A subscriber (coach
// or student) has at most one row in status "active" at any instant; the
// storage layer enforces this with a conditional write.
type Subscription struct {
	ID                 uuid.UUID
	SubscriberID       uuid.UUID
	PlanID             string
	Status             Status
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool // intent flag, distinct from Status

	// FeatureSnapshot is an immutable copy of the plan's feature set taken
	// at creation time, so later catalog edits never retroactively change
	// entitlements for this subscription. Zero for rows that predate
	// snapshotting; resolution falls back to the live plan for those.
	FeatureSnapshot plan.FeatureSet

	// LastPaymentID is the external payment id of the most recent payment
	// event applied to this row. Used to deduplicate webhook redelivery.
	LastPaymentID string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	CanceledAt *time.Time
}

// IsActive reports whether the ledger status is active. Note that the
// access classifier never trusts this alone; see DeriveAccessStatus.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsCanceled reports whether the row reached a canceled state.
func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// PeriodExpired reports whether the paid-through window has elapsed at
// the given instant. A zero period end is treated as expired so a
// malformed row can never grant access.
func (s *Subscription) PeriodExpired(now time.Time) bool {
	if s.CurrentPeriodEnd.IsZero() {
		return true
	}
	return !s.CurrentPeriodEnd.After(now)
}
