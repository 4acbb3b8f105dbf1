package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgeci/pubforge/internal/domain"
)

// Step is one stage of the publish sequence. Steps run strictly in
// order; the first error aborts the run and no step is retried.
type Step interface {
	Name() string
	Run(ctx context.Context, run *Run) error
}

// Run is the mutable state threaded through one invocation. Token
// material is held in unexported fields so it stays out of logs and
// never reaches the process environment.
type Run struct {
	Context   domain.RunContext
	Artifacts []domain.Artifact
	Results   []domain.StepResult

	identityToken string
	credential    string
}

func (r *Run) SetIdentityToken(token string) { r.identityToken = token }
func (r *Run) IdentityToken() string         { return r.identityToken }

func (r *Run) SetCredential(credential string) { r.credential = credential }
func (r *Run) Credential() string              { return r.credential }

// ResultSink receives the terminal run record. Implementations must not
// be handed token material.
type ResultSink interface {
	RecordRun(ctx context.Context, run domain.RunContext, state domain.RunState, results []domain.StepResult) error
}

type Runner struct {
	logger *slog.Logger
	branch string
	steps  []Step
	sink   ResultSink
}

func NewRunner(logger *slog.Logger, branch string, steps ...Step) *Runner {
	return &Runner{logger: logger, branch: branch, steps: steps}
}

// WithSink attaches an optional result sink (e.g. the run ledger).
func (r *Runner) WithSink(sink ResultSink) *Runner {
	r.sink = sink
	return r
}

// Execute runs the sequence. Runs not on the designated branch do not
// execute any step and report RunStateSkipped with a nil error.
func (r *Runner) Execute(ctx context.Context, run *Run) (domain.RunState, error) {
	if run == nil {
		return domain.RunStateFailed, fmt.Errorf("run is required")
	}
	if err := run.Context.Validate(); err != nil {
		return domain.RunStateFailed, err
	}

	if branch := run.Context.BranchName(); branch != r.branch {
		r.logger.Info("run skipped: ref not on designated branch",
			"run_id", run.Context.RunID,
			"ref", run.Context.Ref,
			"designated_branch", r.branch,
		)
		r.record(ctx, run, domain.RunStateSkipped)
		return domain.RunStateSkipped, nil
	}

	var failed error
	for _, step := range r.steps {
		if failed != nil {
			run.Results = append(run.Results, domain.StepResult{
				Name:      step.Name(),
				Status:    domain.StepStateSkipped,
				StartedAt: time.Now().UTC(),
			})
			continue
		}

		started := time.Now().UTC()
		r.logger.Info("step started", "run_id", run.Context.RunID, "step", step.Name())
		err := step.Run(ctx, run)
		finished := time.Now().UTC()

		result := domain.StepResult{
			Name:       step.Name(),
			StartedAt:  started,
			FinishedAt: &finished,
		}
		if err != nil {
			result.Status = domain.StepStateFailed
			result.ErrorMessage = err.Error()
			failed = fmt.Errorf("step %s: %w", step.Name(), err)
			r.logger.Error("step failed",
				"run_id", run.Context.RunID,
				"step", step.Name(),
				"duration_ms", finished.Sub(started).Milliseconds(),
				"error", err.Error(),
			)
		} else {
			result.Status = domain.StepStateSucceeded
			r.logger.Info("step succeeded",
				"run_id", run.Context.RunID,
				"step", step.Name(),
				"duration_ms", finished.Sub(started).Milliseconds(),
			)
		}
		run.Results = append(run.Results, result)
	}

	state := domain.DeriveRunState(run.Results)
	r.record(ctx, run, state)
	if failed != nil {
		return state, failed
	}
	return state, nil
}

func (r *Runner) record(ctx context.Context, run *Run, state domain.RunState) {
	if r.sink == nil {
		return
	}
	if err := r.sink.RecordRun(ctx, run.Context, state, run.Results); err != nil {
		r.logger.Error("run ledger write failed", "run_id", run.Context.RunID, "error", err.Error())
	}
}
