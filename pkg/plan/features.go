package plan

// FeatureSchemaVersion identifies the current shape of FeatureSet.
// Bump it whenever a field is added or renamed so stored snapshots
// can be migrated deliberately instead of silently losing keys.
const FeatureSchemaVersion = 1

// Feature identifies a single gated capability by its wire key.
type Feature string

const (
	FeatureScoreLoading    Feature = "score_loading"    // RM/score logging screens
	FeatureWorkoutBuilder  Feature = "workout_builder"  // custom workout planning
	FeatureVideoAnalysis   Feature = "video_analysis"   // movement video review
	FeatureProgressReports Feature = "progress_reports" // periodized progress reports
	FeatureForumAccess     Feature = "forum_access"     // community forum
)

// KnownFeatures lists every feature key the schema understands,
// in a stable order suitable for API responses.
var KnownFeatures = []Feature{
	FeatureScoreLoading,
	FeatureWorkoutBuilder,
	FeatureVideoAnalysis,
	FeatureProgressReports,
	FeatureForumAccess,
}

// FeatureSet is the closed, versioned feature schema for a plan.
// Each known capability is an explicit field so renamed or unknown
// keys fail at compile time instead of silently resolving to false.
type FeatureSet struct {
	SchemaVersion   int  `yaml:"schema_version" json:"schemaVersion"`
	ScoreLoading    bool `yaml:"score_loading" json:"score_loading"`
	WorkoutBuilder  bool `yaml:"workout_builder" json:"workout_builder"`
	VideoAnalysis   bool `yaml:"video_analysis" json:"video_analysis"`
	ProgressReports bool `yaml:"progress_reports" json:"progress_reports"`
	ForumAccess     bool `yaml:"forum_access" json:"forum_access"`
}

// Has reports whether the given feature key is enabled.
// Unknown keys resolve to false, never to an error.
func (fs FeatureSet) Has(f Feature) bool {
	switch f {
	case FeatureScoreLoading:
		return fs.ScoreLoading
	case FeatureWorkoutBuilder:
		return fs.WorkoutBuilder
	case FeatureVideoAnalysis:
		return fs.VideoAnalysis
	case FeatureProgressReports:
		return fs.ProgressReports
	case FeatureForumAccess:
		return fs.ForumAccess
	default:
		return false
	}
}

// IsZero reports whether no schema version was ever stamped on the set.
// A zero set on a subscription means the row predates feature snapshotting
// and resolution must fall back to the live plan.
func (fs FeatureSet) IsZero() bool {
	return fs.SchemaVersion == 0
}

// Map renders the set as a wire-friendly key->bool map covering every
// known feature, including disabled ones.
func (fs FeatureSet) Map() map[Feature]bool {
	m := make(map[Feature]bool, len(KnownFeatures))
	for _, f := range KnownFeatures {
		m[f] = fs.Has(f)
	}
	return m
}
