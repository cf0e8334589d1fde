package plan

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source defines how plan definitions are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// InMemSource serves a fixed list of plans. Intended for tests and
// for applications that define their catalog in code.
type InMemSource struct {
	plans []Plan
}

// NewInMemSource creates a source from the given plans.
func NewInMemSource(plans ...Plan) *InMemSource {
	return &InMemSource{plans: plans}
}

func (s *InMemSource) Load(_ context.Context) (map[string]Plan, error) {
	out := make(map[string]Plan, len(s.plans))
	for _, p := range s.plans {
		out[p.ID] = p
	}
	return out, nil
}

// YAMLSource loads plan definitions from a YAML file.
//
// Expected document shape:
//
//	plans:
//	  - id: coach_start_monthly
//	    name: Start
//	    audience: coach
//	    tier: 1
//	    features:
//	      schema_version: 1
//	      workout_builder: true
type YAMLSource struct {
	path string
}

// NewYAMLSource creates a source reading from the given file path.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

func (s *YAMLSource) Load(_ context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	out := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		if _, dup := out[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("duplicate plan ID %q in %s", p.ID, s.path))
		}
		out[p.ID] = p
	}
	return out, nil
}
