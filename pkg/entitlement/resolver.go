package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/subscription"
)

// PlanInfo is the resolved entitlement view for one subscriber. It is
// derived on every request and never persisted.
type PlanInfo struct {
	PlanID             string
	PlanName           string
	Features           plan.FeatureSet
	AccessStatus       subscription.AccessStatus
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// RelationshipStore resolves a student's current coach.
type RelationshipStore interface {
	// ActiveCoachForStudent returns the coach the student is currently
	// linked to. Returns ErrNoActiveCoach if the student has no active
	// relationship.
	ActiveCoachForStudent(ctx context.Context, studentID uuid.UUID) (uuid.UUID, error)
}

// TrialStore reads trial metadata from the coach profile. A coach may be
// entitled through a trial with zero ledger rows.
type TrialStore interface {
	// TrialEndsAt returns the coach's trial end date, or nil if the coach
	// never had a trial.
	TrialEndsAt(ctx context.Context, coachID uuid.UUID) (*time.Time, error)
}

// Resolver walks subscriber -> ledger -> plan (and for students,
// student -> coach -> coach's ledger) to produce a typed feature set.
type Resolver struct {
	subs          subscription.Store
	relationships RelationshipStore
	trials        TrialStore
	catalog       *plan.Catalog
	log           *slog.Logger
	now           func() time.Time
}

// ResolverOption configures optional Resolver settings.
type ResolverOption func(*Resolver)

// WithClock overrides the wall clock, primarily for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for resolution failures.
func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a Resolver. Panics on nil dependencies to fail fast
// during initialization.
func NewResolver(subs subscription.Store, relationships RelationshipStore, trials TrialStore, catalog *plan.Catalog, opts ...ResolverOption) *Resolver {
	if subs == nil {
		panic("entitlement: subscription store is required")
	}
	if relationships == nil {
		panic("entitlement: relationship store is required")
	}
	if trials == nil {
		panic("entitlement: trial store is required")
	}
	if catalog == nil {
		panic("entitlement: plan catalog is required")
	}

	r := &Resolver{
		subs:          subs,
		relationships: relationships,
		trials:        trials,
		catalog:       catalog,
		log:           slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCoach returns the coach's own entitlements: the subscribed plan's
// features when active, the baseline plan's features during trial, and nil
// (no entitlements, no error) when expired or inactive.
func (r *Resolver) ResolveCoach(ctx context.Context, coachID uuid.UUID) (*PlanInfo, error) {
	rows, err := r.subs.ListBySubscriber(ctx, coachID)
	if err != nil {
		return nil, errors.Join(ErrResolutionFailed, err)
	}
	trialEndsAt, err := r.trials.TrialEndsAt(ctx, coachID)
	if err != nil {
		return nil, errors.Join(ErrResolutionFailed, err)
	}

	now := r.now()
	switch subscription.DeriveAccessStatus(rows, trialEndsAt, now) {
	case subscription.AccessActive:
		return r.activeInfo(subscription.CurrentActive(rows))

	case subscription.AccessTrial:
		// Trial grants the baseline tier only, never the plan the coach
		// intends to buy.
		baseline, err := r.catalog.Baseline()
		if err != nil {
			return nil, errors.Join(ErrResolutionFailed, err)
		}
		return &PlanInfo{
			PlanID:       baseline.ID,
			PlanName:     baseline.Name,
			Features:     baseline.Features,
			AccessStatus: subscription.AccessTrial,
		}, nil

	default:
		return nil, nil
	}
}

// ResolveStudent returns the entitlements a student inherits from their
// coach's plan. A student with no active coach relationship has no
// entitlements; a student never gains features through their own purchase.
func (r *Resolver) ResolveStudent(ctx context.Context, studentID uuid.UUID) (*PlanInfo, error) {
	coachID, err := r.relationships.ActiveCoachForStudent(ctx, studentID)
	if errors.Is(err, ErrNoActiveCoach) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrResolutionFailed, err)
	}
	return r.ResolveCoach(ctx, coachID)
}

// activeInfo builds the PlanInfo for an active ledger row, preferring the
// feature snapshot taken at creation over the live catalog plan.
func (r *Resolver) activeInfo(sub *subscription.Subscription) (*PlanInfo, error) {
	info := &PlanInfo{
		PlanID:             sub.PlanID,
		AccessStatus:       subscription.AccessActive,
		CurrentPeriodStart: &sub.CurrentPeriodStart,
		CurrentPeriodEnd:   &sub.CurrentPeriodEnd,
	}

	p, err := r.catalog.Get(sub.PlanID)
	switch {
	case err == nil:
		info.PlanName = p.Name
		info.Features = p.Features
	case !sub.FeatureSnapshot.IsZero():
		// Plan retired from the catalog but the row carries its snapshot;
		// the subscriber keeps what they paid for.
		info.PlanName = sub.PlanID
	default:
		return nil, errors.Join(ErrResolutionFailed, err)
	}

	if !sub.FeatureSnapshot.IsZero() {
		info.Features = sub.FeatureSnapshot
	}
	return info, nil
}

// HasFeature reports whether the resolved plan grants the given feature.
// A nil PlanInfo (no entitlements) is false, never an error.
func HasFeature(info *PlanInfo, f plan.Feature) bool {
	if info == nil {
		return false
	}
	return info.Features.Has(f)
}
