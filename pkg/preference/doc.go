// Package preference implements the once-per-billing-period lock on a
// student's discipline/level preference change.
//
// The rule is tied to the student's subscription billing window, not to
// calendar months: a change is denied only when the student has an active
// subscription and the last accepted change already falls inside the
// current [periodStart, periodEnd) window. Students without an active
// subscription change freely. The next eligible date on a denial is the
// current period's end, so a mid-cycle purchase or renewal shifts the
// window along with the subscription.
//
// CanChange is a pure decision function with no storage dependency. The
// actual mutation goes through Store.ApplyGuarded, which re-checks the
// window and stamps the change date in a single conditional write, closing
// the race where two concurrent requests both observe an open window.
package preference
