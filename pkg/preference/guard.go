package preference

import (
	"time"

	"github.com/fitlab/coachbill/pkg/subscription"
)

// Decision is the outcome of the preference lock check.
type Decision struct {
	Allowed        bool
	NextEligibleAt *time.Time // set when denied: end of the current billing period
	Reason         string     // human-readable denial reason, empty when allowed
}

// CanChange decides whether a discipline/level preference change is allowed.
// It is a pure function of the last accepted change and the student's
// active subscription; persisting the change (and stamping the new change
// date) is the caller's job, done atomically with this rule re-checked in
// storage.
//
// The lock is once per billing period, anchored to the subscription's live
// period bounds rather than calendar months: students without an active
// subscription change freely, and a change made before the current period
// started does not count against this period.
func CanChange(lastChange *time.Time, sub *subscription.Subscription) Decision {
	if sub == nil || !sub.IsActive() {
		return Decision{Allowed: true}
	}
	if lastChange == nil {
		return Decision{Allowed: true}
	}
	if lastChange.Before(sub.CurrentPeriodStart) {
		return Decision{Allowed: true}
	}

	next := sub.CurrentPeriodEnd
	return Decision{
		Allowed:        false,
		NextEligibleAt: &next,
		Reason:         "preference already changed this billing period",
	}
}
