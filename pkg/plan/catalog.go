package plan

import (
	"context"
	"errors"
	"fmt"
)

// Catalog holds the validated, immutable set of plans for this deployment.
// Plans are loaded once at startup and returned by value so callers can
// never mutate the catalog through a lookup.
type Catalog struct {
	plans    map[string]Plan
	baseline string // lowest-tier public coach plan, substituted during trials
}

// NewCatalog loads and validates plans from the given source.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("plan: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(plans); err != nil {
		return nil, err
	}

	c := &Catalog{plans: plans}

	// Trial users get the lowest paid tier's features, not the plan they
	// intend to buy, so the baseline must exist whenever coach plans do.
	for id, p := range plans {
		if p.Audience != AudienceCoach || !p.Public {
			continue
		}
		if c.baseline == "" || p.Tier < plans[c.baseline].Tier {
			c.baseline = id
		}
	}

	return c, nil
}

// Get returns the plan with the given ID.
func (c *Catalog) Get(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// Baseline returns the lowest-tier public coach plan. This is the plan
// whose features a coach receives while on trial.
func (c *Catalog) Baseline() (Plan, error) {
	if c.baseline == "" {
		return Plan{}, ErrNoBaselinePlan
	}
	return c.plans[c.baseline], nil
}

// All returns a copy of every plan in the catalog.
func (c *Catalog) All() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	return out
}

// validate catches configuration mistakes at startup rather than at
// resolution time.
func validate(plans map[string]Plan) error {
	for id, p := range plans {
		if p.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", id, p.ID))
		}
		if p.Audience != AudienceCoach && p.Audience != AudienceStudent {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has unknown audience %q", id, p.Audience))
		}
		if p.Tier <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has non-positive tier %d", id, p.Tier))
		}
		if p.MaxStudents < Unlimited {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid max students %d", id, p.MaxStudents))
		}
		if p.Features.SchemaVersion != FeatureSchemaVersion {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s declares feature schema v%d, engine supports v%d",
					id, p.Features.SchemaVersion, FeatureSchemaVersion))
		}
	}
	return nil
}
