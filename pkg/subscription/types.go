package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the ledger state of a subscription row.
// Transitions are driven by payment events and explicit user/admin
// actions, never by read-side computation.
type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusUnpaid   Status = "unpaid"
	StatusCanceled Status = "canceled"
)

// AccessStatus is the coarse-grained, derived access classification.
// It is computed on every request from the ledger, trial metadata and
// the clock, and is never persisted.
type AccessStatus string

const (
	AccessActive   AccessStatus = "active"
	AccessTrial    AccessStatus = "trial"
	AccessExpired  AccessStatus = "expired"
	AccessInactive AccessStatus = "inactive"
)

// PaymentOutcome is the normalized result reported by the payment
// collaborator. Gateway protocol details (signatures, redirects) are
// handled upstream and never reach this package.
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentEvent is one normalized webhook delivery. ExternalPaymentID is
// the idempotency key: a redelivered event must not move the ledger twice.
type PaymentEvent struct {
	ExternalPaymentID string         `json:"externalPaymentId"`
	SubscriberID      uuid.UUID      `json:"subscriberId"`
	Outcome           PaymentOutcome `json:"outcome"`
	PeriodStart       time.Time      `json:"periodStart"`
	PeriodEnd         time.Time      `json:"periodEnd"`
}
