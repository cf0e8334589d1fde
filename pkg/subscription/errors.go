package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSamePlan             = errors.New("subscriber is already on this plan")
	ErrInvalidTransition    = errors.New("invalid subscription status transition")
	ErrAlreadyActive        = errors.New("subscription is already active")
	ErrNotCancelable        = errors.New("subscription has no pending cancellation")
	ErrInvalidSubscription  = errors.New("invalid subscription record")

	// ErrConflict indicates a concurrent write raced this one on the
	// at-most-one-active invariant. Callers retry once after re-reading;
	// a second conflict surfaces to the client as 409.
	ErrConflict = errors.New("concurrent subscription write conflict")
)
