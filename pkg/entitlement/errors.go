package entitlement

import "errors"

var (
	// ErrNoActiveCoach indicates the student has no active coach
	// relationship. Resolution treats this as "no entitlements", not a
	// failure.
	ErrNoActiveCoach = errors.New("student has no active coach relationship")

	// ErrResolutionFailed wraps storage or catalog failures during
	// resolution. The feature gate fails open on this; see featuregate.
	ErrResolutionFailed = errors.New("entitlement resolution failed")
)
