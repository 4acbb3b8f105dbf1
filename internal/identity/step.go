package identity

import (
	"context"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step retrieves the run's identity token and stashes it in run state.
// When a verifier is attached the token is also checked against the
// issuer before any of it is used.
type Step struct {
	fetcher  *Fetcher
	verifier *Verifier
}

func NewStep(fetcher *Fetcher, verifier *Verifier) *Step {
	return &Step{fetcher: fetcher, verifier: verifier}
}

func (s *Step) Name() string { return "identity-token" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	token, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	if s.verifier != nil {
		if _, err := s.verifier.Verify(ctx, token); err != nil {
			return err
		}
	}
	run.SetIdentityToken(token)
	return nil
}
