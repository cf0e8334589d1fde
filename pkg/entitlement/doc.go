// Package entitlement resolves which product features a subscriber has
// unlocked based on the subscription ledger, trial metadata and the plan
// catalog.
//
// The central design fact of the module is the student indirection: a
// student's entitlements are always a reflection of their coach's plan.
// Resolution for a student walks student -> active coach relationship ->
// coach's ledger -> plan, and there is no student-side feature
// configuration at all. A coach whose subscription lapses takes every
// linked student's features with it on the next resolution.
//
// Coaches on trial resolve to the catalog's baseline plan (the lowest
// public tier), not to whichever plan they intend to buy. Expired and
// inactive subscribers resolve to a nil PlanInfo with no error; storage
// failures return ErrResolutionFailed for the caller to classify.
//
// # Caching
//
// DisplayCache offers a few-minute TTL cache of resolved PlanInfo for
// read-heavy display endpoints (memory or Redis backed). It is latency
// insurance only: the feature gate resolves fresh from storage on every
// authorization check.
package entitlement
