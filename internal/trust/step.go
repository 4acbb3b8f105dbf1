package trust

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgeci/pubforge/internal/identity"
	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step evaluates the identity token's claims against the local trust
// policy before the credential exchange. A deny fails the run with no
// credential issued.
type Step struct {
	logger *slog.Logger
	spec   Spec
}

func NewStep(logger *slog.Logger, spec Spec) *Step {
	return &Step{logger: logger, spec: spec}
}

func (s *Step) Name() string { return "trust-preflight" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	claims, err := identity.ParseUnverified(run.IdentityToken())
	if err != nil {
		return err
	}

	decision, err := Evaluate(s.spec, claims.Map())
	if err != nil {
		return err
	}
	if decision.Effect != EffectAllow {
		return fmt.Errorf("%w: rule=%s reason=%s", ErrDenied, decision.RuleID, decision.Reason)
	}
	s.logger.Info("trust preflight allowed",
		"run_id", run.Context.RunID,
		"rule", decision.RuleID,
	)
	return nil
}
