package artifact

import (
	"context"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step resolves the build output into the run's artifact set.
type Step struct {
	workDir string
	globs   []string
}

func NewStep(workDir string, globs []string) *Step {
	return &Step{workDir: workDir, globs: globs}
}

func (s *Step) Name() string { return "artifacts" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	artifacts, err := Discover(s.workDir, s.globs)
	if err != nil {
		return err
	}
	run.Artifacts = artifacts
	return nil
}
