// Package plan defines the immutable plan catalog and the closed feature
// schema used by the entitlement engine.
//
// A Plan is one versioned record describing a coach or student tier: price,
// billing interval, student cap, commission rate, and a typed FeatureSet.
// Plans are loaded once at startup through a Source (in-memory or YAML) and
// validated into a Catalog. The catalog is read-only after construction and
// every lookup returns plans by value.
//
// # Feature schema
//
// FeatureSet is deliberately a closed struct rather than a string-keyed map:
// every gated capability is an explicit field, so a renamed or unknown key is
// a compile error at its call site instead of a check that silently resolves
// to false. The schema carries a version number so feature sets snapshotted
// onto subscriptions can be migrated when the shape changes.
//
//	features := plan.FeatureSet{
//		SchemaVersion:  plan.FeatureSchemaVersion,
//		ScoreLoading:   true,
//		WorkoutBuilder: true,
//	}
//	features.Has(plan.FeatureScoreLoading) // true
//	features.Has(plan.Feature("typo_key")) // false, never an error
//
// # Baseline plan
//
// Catalog.Baseline returns the lowest-tier public coach plan. Coaches on
// trial are entitled to exactly this plan's features regardless of which
// plan they eventually purchase.
package plan
