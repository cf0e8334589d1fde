// Package subscription implements the subscription ledger and its state
// machine: one row per coach or student subscription, with status, current
// billing period bounds and cancellation intent.
//
// The package splits reads and writes strictly:
//
//   - DeriveAccessStatus is a pure classifier. It computes the coarse
//     access status (active, trial, expired, inactive) from ledger rows,
//     optional trial metadata and the clock, and never writes anything.
//     It deliberately distrusts a stale status: an "active" row whose
//     period has elapsed classifies as expired.
//   - Service owns every mutation (plan change, cancellation intent,
//     reactivation, payment events) and re-validates the current status
//     against the transition table before each write.
//
// # Invariant
//
// A subscriber holds at most one row in status "active" at any instant.
// Plan changes therefore go through Store.CreateReplacingActive, which
// cancels the current active row and inserts the new one in a single
// storage transaction; a racing writer receives ErrConflict and the
// service retries once after re-reading.
//
// # Payment events
//
// External payment processing reaches this package only as normalized
// PaymentEvent values. Events are idempotent on ExternalPaymentID: a
// redelivered webhook is acknowledged without moving the ledger.
//
// # Trial
//
// Trial metadata lives on the coach profile, independent of any ledger
// row. Trial expiry compares UTC calendar dates, not instants, so a trial
// remains valid through the whole of its last day.
package subscription
