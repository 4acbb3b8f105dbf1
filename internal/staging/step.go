package staging

import (
	"context"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step stages every discovered artifact before publishing.
type Step struct {
	store *Store
}

func NewStep(store *Store) *Step {
	return &Step{store: store}
}

func (s *Step) Name() string { return "stage-artifacts" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	for _, art := range run.Artifacts {
		if err := s.store.Stage(ctx, run.Context.RunID, art); err != nil {
			return err
		}
	}
	return nil
}
