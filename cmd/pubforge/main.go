package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/forgeci/pubforge/internal/artifact"
	"github.com/forgeci/pubforge/internal/buildtool"
	"github.com/forgeci/pubforge/internal/checkout"
	"github.com/forgeci/pubforge/internal/config"
	"github.com/forgeci/pubforge/internal/domain"
	"github.com/forgeci/pubforge/internal/identity"
	"github.com/forgeci/pubforge/internal/ledger"
	"github.com/forgeci/pubforge/internal/pipeline"
	"github.com/forgeci/pubforge/internal/platform/httpclient"
	"github.com/forgeci/pubforge/internal/registry"
	"github.com/forgeci/pubforge/internal/staging"
	"github.com/forgeci/pubforge/internal/toolchain"
	"github.com/forgeci/pubforge/internal/trust"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	httpClient := httpclient.New(logger, cfg.HTTPTimeout)

	identityCfg, err := identity.ConfigFromEnv(cfg.Audience)
	if err != nil {
		logger.Error("invalid identity config", "error", err)
		os.Exit(2)
	}
	fetcher, err := identity.NewFetcher(identityCfg, httpClient)
	if err != nil {
		logger.Error("identity fetcher init failed", "error", err)
		os.Exit(2)
	}

	var verifier *identity.Verifier
	if cfg.OIDCIssuerURL != "" {
		verifier, err = identity.NewVerifier(ctx, cfg.OIDCIssuerURL, cfg.Audience, httpClient)
		if err != nil {
			logger.Error("oidc verifier init failed", "error", err)
			os.Exit(2)
		}
	}

	registryClient, err := registry.New(logger, cfg.APIBaseURL, cfg.Organization, cfg.Repository, httpClient)
	if err != nil {
		logger.Error("registry client init failed", "error", err)
		os.Exit(2)
	}

	checkoutStep, err := checkout.New(cfg.GitURL, cfg.WorkDir)
	if err != nil {
		logger.Error("checkout init failed", "error", err)
		os.Exit(2)
	}
	toolchainStep, err := toolchain.New(cfg.PythonBin, cfg.PythonVersion)
	if err != nil {
		logger.Error("toolchain init failed", "error", err)
		os.Exit(2)
	}
	buildStep, err := buildtool.New(logger, cfg.BuildCommand, cfg.WorkDir)
	if err != nil {
		logger.Error("build tool init failed", "error", err)
		os.Exit(2)
	}

	steps := []pipeline.Step{
		checkoutStep,
		toolchainStep,
		buildStep,
		artifact.NewStep(cfg.WorkDir, cfg.ArtifactGlobs),
	}

	stagingCfg, err := staging.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid staging config", "error", err)
		os.Exit(2)
	}
	if stagingCfg.Enabled {
		store, err := staging.NewStore(stagingCfg)
		if err != nil {
			logger.Error("staging store init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = store.EnsureBucket(startupCtx, stagingCfg.Region)
		cancel()
		if err != nil {
			logger.Error("staging bucket unavailable", "error", err)
			os.Exit(1)
		}
		steps = append(steps, staging.NewStep(store))
	}

	steps = append(steps, identity.NewStep(fetcher, verifier))

	if cfg.TrustPolicyPath != "" {
		spec, err := trust.LoadSpec(cfg.TrustPolicyPath)
		if err != nil {
			logger.Error("invalid trust policy", "error", err)
			os.Exit(2)
		}
		steps = append(steps, trust.NewStep(logger, spec))
	}

	steps = append(steps,
		registry.NewExchangeStep(registryClient),
		registry.NewVerifyStep(logger, registryClient),
		registry.NewPublishStep(registryClient, cfg.Republish),
	)

	runner := pipeline.NewRunner(logger, cfg.Branch, steps...)

	ledgerCfg, err := ledger.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid ledger config", "error", err)
		os.Exit(2)
	}
	if ledgerCfg.Enabled() {
		store, err := ledger.Open(ctx, ledgerCfg)
		if err != nil {
			logger.Error("ledger unavailable", "error", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
		runner = runner.WithSink(store)
	}

	var repoOwner, repoName string
	if cfg.RepoSlug != "" {
		repoOwner, err = cfg.RepoOwner()
		if err == nil {
			repoName, err = cfg.RepoName()
		}
		if err != nil {
			logger.Error("invalid repository slug", "error", err)
			os.Exit(2)
		}
	} else {
		logger.Warn("GITHUB_REPOSITORY is not set; run records carry no repository identity")
	}
	run := &pipeline.Run{Context: domain.RunContext{
		RunID:          uuid.NewString(),
		RepoOwner:      repoOwner,
		RepoName:       repoName,
		Ref:            cfg.Ref,
		Commit:         cfg.Commit,
		Organization:   cfg.Organization,
		Repository:     cfg.Repository,
		ServiceAccount: cfg.ServiceAccount,
		StartedAt:      time.Now().UTC(),
	}}

	state, err := runner.Execute(ctx, run)
	if err != nil {
		logger.Error("publish run failed", "run_id", run.Context.RunID, "state", string(state), "error", err)
		os.Exit(1)
	}
	logger.Info("publish run finished", "run_id", run.Context.RunID, "state", string(state))
}
