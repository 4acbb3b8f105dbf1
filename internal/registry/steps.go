package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// ExchangeStep swaps the identity token for the run's registry
// credential. The credential stays inside run state; it is never
// exported to the process environment.
type ExchangeStep struct {
	client *Client
}

func NewExchangeStep(client *Client) *ExchangeStep {
	return &ExchangeStep{client: client}
}

func (s *ExchangeStep) Name() string { return "credential-exchange" }

func (s *ExchangeStep) Run(ctx context.Context, run *pipeline.Run) error {
	credential, err := s.client.Exchange(ctx, run.IdentityToken(), run.Context.ServiceAccount)
	if err != nil {
		return err
	}
	run.SetCredential(credential)
	return nil
}

// VerifyStep asks the registry who the exchanged credential belongs
// to, failing early when the credential is unusable.
type VerifyStep struct {
	logger *slog.Logger
	client *Client
}

func NewVerifyStep(logger *slog.Logger, client *Client) *VerifyStep {
	return &VerifyStep{logger: logger, client: client}
}

func (s *VerifyStep) Name() string { return "verify-credential" }

func (s *VerifyStep) Run(ctx context.Context, run *pipeline.Run) error {
	identity, err := s.client.Self(ctx, run.Credential())
	if err != nil {
		return err
	}
	s.logger.Info("registry identity verified",
		"run_id", run.Context.RunID,
		"slug", identity.Slug,
	)
	return nil
}

// PublishStep uploads every discovered artifact. Discovery has already
// failed the run when nothing matched, so an empty artifact set here
// means the steps were mis-assembled.
type PublishStep struct {
	client    *Client
	republish bool
}

func NewPublishStep(client *Client, republish bool) *PublishStep {
	return &PublishStep{client: client, republish: republish}
}

func (s *PublishStep) Name() string { return "publish" }

func (s *PublishStep) Run(ctx context.Context, run *pipeline.Run) error {
	if len(run.Artifacts) == 0 {
		return errors.New("no artifacts to publish; discovery step did not run")
	}
	for _, art := range run.Artifacts {
		if err := s.client.Upload(ctx, run.Credential(), art, s.republish); err != nil {
			return err
		}
	}
	return nil
}
