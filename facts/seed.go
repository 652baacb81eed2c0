package facts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolcache/observe"
)

//go:embed baseline.yaml
var baselineYAML []byte

// Seeder merges the static baseline fact tables into a Store. It is
// constructed with an explicit store reference and owns only the initial
// merge; afterward it has no special privilege over the records.
type Seeder struct {
	store  *Store
	logger observe.Logger
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

// WithSeederLogger sets the seeder's logger.
func WithSeederLogger(l observe.Logger) SeederOption {
	return func(s *Seeder) { s.logger = l }
}

// NewSeeder creates a Seeder writing to store.
func NewSeeder(store *Store, opts ...SeederOption) (*Seeder, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	s := &Seeder{
		store:  store,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Seed merges every baseline category into the store. Run once per process,
// at startup. Per-category failures are logged and collected rather than
// aborting: a partially seeded store is still useful, and a failed seed
// degrades the agent to cold-cache behavior, never breaks it.
func (s *Seeder) Seed(ctx context.Context) error {
	baseline, err := Baseline()
	if err != nil {
		s.logger.Error(ctx, "failed to parse baseline facts",
			observe.Field{Key: "error", Value: err.Error()})
		return err
	}

	var errs []error
	seeded := 0
	for _, category := range sortedKeys(baseline) {
		if err := s.store.PutFacts(ctx, category, baseline[category]); err != nil {
			s.logger.Warn(ctx, "failed to seed category",
				observe.Field{Key: "category", Value: category},
				observe.Field{Key: "error", Value: err.Error()})
			errs = append(errs, fmt.Errorf("seed %s: %w", category, err))
			continue
		}
		seeded++
	}

	s.logger.Info(ctx, "seeded baseline facts",
		observe.Field{Key: "categories", Value: seeded})
	return errors.Join(errs...)
}

// Baseline parses the embedded baseline document into per-category fact maps.
func Baseline() (map[string]map[string]any, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(baselineYAML, &raw); err != nil {
		return nil, fmt.Errorf("facts: parse baseline: %w", err)
	}
	return raw, nil
}

// BaselineCategories returns the category names in the baseline document,
// sorted.
func BaselineCategories() ([]string, error) {
	baseline, err := Baseline()
	if err != nil {
		return nil, err
	}
	return sortedKeys(baseline), nil
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
