package featuregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/entitlement"
	"github.com/fitlab/coachbill/pkg/plan"
)

// DenialCode is the machine-readable code for a feature denial payload.
const DenialCode = "FEATURE_NOT_AVAILABLE"

// ResolveFunc resolves a subscriber's entitlements. It is typically
// entitlement.Resolver.ResolveStudent or ResolveCoach.
type ResolveFunc func(ctx context.Context, subscriberID uuid.UUID) (*entitlement.PlanInfo, error)

// Denial describes a denied feature check in the shape the API returns.
type Denial struct {
	Code    string       `json:"code"`
	Feature plan.Feature `json:"feature"`
	Message string       `json:"error"`
}

// Result is the outcome of one feature check.
type Result struct {
	Allowed bool
	Denial  *Denial // set only when Allowed is false
}

// Gate turns an entitlement lookup into an allow/deny decision at the API
// boundary.
//
// The gate fails OPEN: when resolution itself breaks (storage unreachable,
// malformed plan data) the request is allowed and the failure logged. This
// is a deliberate product decision for these non-payment-critical gates —
// an already-authenticated user is not locked out of low-risk screens by
// an infrastructure hiccup — and it is paired with mandatory error logging
// so failures stay observable. Contrast with the access classifier in the
// subscription package, which fails closed: unknown payment status is
// never treated as paid.
type Gate struct {
	resolve ResolveFunc
	log     *slog.Logger
}

// New creates a Gate. Panics on a nil resolver to fail fast during
// initialization.
func New(resolve ResolveFunc, log *slog.Logger) *Gate {
	if resolve == nil {
		panic("featuregate: resolve func is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gate{resolve: resolve, log: log}
}

// Require checks whether the subscriber's resolved plan grants the
// feature. humanName appears in the denial message shown to users.
func (g *Gate) Require(ctx context.Context, subscriberID uuid.UUID, feature plan.Feature, humanName string) Result {
	info, err := g.resolve(ctx, subscriberID)
	if err != nil {
		g.log.ErrorContext(ctx, "entitlement resolution failed, allowing request",
			slog.String("subscriber_id", subscriberID.String()),
			slog.String("feature", string(feature)),
			slog.Any("error", err))
		return Result{Allowed: true}
	}

	if entitlement.HasFeature(info, feature) {
		return Result{Allowed: true}
	}

	// A denied feature is a normal business outcome, not an error.
	g.log.DebugContext(ctx, "feature not in plan",
		slog.String("subscriber_id", subscriberID.String()),
		slog.String("feature", string(feature)))
	return Result{
		Allowed: false,
		Denial: &Denial{
			Code:    DenialCode,
			Feature: feature,
			Message: fmt.Sprintf("%s is not available on your current plan", humanName),
		},
	}
}
