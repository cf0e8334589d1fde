package subscription

import "time"

// DeriveAccessStatus classifies a subscriber's access from the ledger,
// optional trial metadata and the clock. It is a pure read-side function:
// identical inputs always yield the identical status and nothing is ever
// written.
//
// Priority order:
//
//  1. The most recent ledger row in status "active" (ties broken by the
//     latest CurrentPeriodEnd). If its period covers now the subscriber is
//     active; if the period has elapsed the result is expired even though
//     the ledger still says active — a payment processor that failed to
//     transition the row must never grant continued access against the
//     clock.
//  2. Otherwise, an unexpired trial grants trial access. The comparison is
//     by UTC calendar date, not instant, so a trial stays valid through
//     the whole of its last day.
//  3. Otherwise the subscriber is inactive.
//
// Malformed inputs (zero period end, zero trial date) fail closed to
// expired, never to active.
func DeriveAccessStatus(subs []Subscription, trialEndsAt *time.Time, now time.Time) AccessStatus {
	if current := CurrentActive(subs); current != nil {
		if current.PeriodExpired(now) {
			return AccessExpired
		}
		return AccessActive
	}

	if trialEndsAt != nil {
		if trialEndsAt.IsZero() {
			return AccessExpired
		}
		if dateOnly(*trialEndsAt).Before(dateOnly(now)) {
			return AccessExpired
		}
		return AccessTrial
	}

	return AccessInactive
}

// CurrentActive selects the active row with the latest period end, or nil
// when the subscriber has no active row. This is the row DeriveAccessStatus
// classifies against and the one entitlement resolution reads features from.
func CurrentActive(subs []Subscription) *Subscription {
	var current *Subscription
	for i := range subs {
		s := &subs[i]
		if s.Status != StatusActive {
			continue
		}
		if current == nil || s.CurrentPeriodEnd.After(current.CurrentPeriodEnd) {
			current = s
		}
	}
	return current
}

// dateOnly truncates an instant to its UTC calendar date. Trial expiry is
// anchored to UTC so the boundary does not drift with server timezone.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
