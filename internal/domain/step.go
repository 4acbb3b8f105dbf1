package domain

import "time"

type StepState string

const (
	StepStateSucceeded StepState = "succeeded"
	StepStateFailed    StepState = "failed"
	StepStateSkipped   StepState = "skipped"
)

type RunState string

const (
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
	RunStateSkipped   RunState = "skipped"
)

// StepResult records the terminal outcome of one pipeline step.
type StepResult struct {
	Name         string
	Status       StepState
	StartedAt    time.Time
	FinishedAt   *time.Time
	ErrorMessage string
}

// DeriveRunState computes the run outcome from ordered step results.
// A run with no executed steps was gated off and counts as skipped.
func DeriveRunState(results []StepResult) RunState {
	if len(results) == 0 {
		return RunStateSkipped
	}
	executed := false
	for _, r := range results {
		switch r.Status {
		case StepStateFailed:
			return RunStateFailed
		case StepStateSucceeded:
			executed = true
		}
	}
	if !executed {
		return RunStateSkipped
	}
	return RunStateSucceeded
}
