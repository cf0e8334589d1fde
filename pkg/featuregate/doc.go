// Package featuregate adapts entitlement resolution into HTTP-level
// allow/deny decisions with the uniform FEATURE_NOT_AVAILABLE payload.
//
// The gate fails open on resolution errors (with mandatory error logging)
// and always resolves fresh from storage — never from the display cache.
// See the Gate type for the rationale behind the fail-open policy.
package featuregate
