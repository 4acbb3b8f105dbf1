package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgeci/pubforge/internal/platform/env"
)

// Config holds the run-level settings for one publish invocation.
// Registry-side identifiers (organization, repository, service account)
// come from PUBFORGE_* variables; the triggering repository identity is
// read from the CI provider's standard variables.
type Config struct {
	Organization   string
	Repository     string
	ServiceAccount string

	Branch     string
	RepoSlug   string // owner/name as reported by the CI provider
	Ref        string
	Commit     string
	GitURL     string
	WorkDir    string
	Audience   string
	APIBaseURL string

	ArtifactGlobs []string
	Republish     bool

	BuildCommand    []string
	PythonBin       string
	PythonVersion   string
	TrustPolicyPath string
	OIDCIssuerURL   string

	HTTPTimeout time.Duration
}

func FromEnv() (Config, error) {
	republish, err := env.Bool("PUBFORGE_REPUBLISH", true)
	if err != nil {
		return Config{}, err
	}
	httpTimeout, err := env.Duration("PUBFORGE_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Organization:   env.String("PUBFORGE_ORG", ""),
		Repository:     env.String("PUBFORGE_REPO", ""),
		ServiceAccount: env.String("PUBFORGE_SERVICE_SLUG", ""),

		Branch:     env.String("PUBFORGE_BRANCH", "main"),
		RepoSlug:   env.String("GITHUB_REPOSITORY", ""),
		Ref:        env.String("GITHUB_REF", ""),
		Commit:     env.String("GITHUB_SHA", ""),
		GitURL:     env.String("PUBFORGE_GIT_URL", ""),
		WorkDir:    env.String("PUBFORGE_WORKDIR", "."),
		Audience:   env.String("PUBFORGE_AUDIENCE", "api.cloudsmith.io"),
		APIBaseURL: env.String("PUBFORGE_API_URL", "https://api.cloudsmith.io/v1"),

		ArtifactGlobs: env.Strings("PUBFORGE_ARTIFACT_GLOBS", []string{"dist/*.whl", "dist/*.tar.gz"}),
		Republish:     republish,

		BuildCommand:    env.Strings("PUBFORGE_BUILD_COMMAND", []string{"python3", "-m", "build"}),
		PythonBin:       env.String("PUBFORGE_PYTHON_BIN", "python3"),
		PythonVersion:   env.String("PUBFORGE_PYTHON_VERSION", ""),
		TrustPolicyPath: env.String("PUBFORGE_TRUST_POLICY", ""),
		OIDCIssuerURL:   env.String("PUBFORGE_OIDC_ISSUER", ""),

		HTTPTimeout: httpTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Organization) == "" {
		return errors.New("PUBFORGE_ORG is required")
	}
	if strings.TrimSpace(c.Repository) == "" {
		return errors.New("PUBFORGE_REPO is required")
	}
	if strings.TrimSpace(c.ServiceAccount) == "" {
		return errors.New("PUBFORGE_SERVICE_SLUG is required")
	}
	if strings.TrimSpace(c.Branch) == "" {
		return errors.New("PUBFORGE_BRANCH must not be empty")
	}
	// An absent ref must not look like a legitimate off-branch push.
	if strings.TrimSpace(c.Ref) == "" {
		return errors.New("GITHUB_REF must be set")
	}
	if strings.TrimSpace(c.RepoSlug) != "" {
		if _, _, err := splitRepoSlug(c.RepoSlug); err != nil {
			return fmt.Errorf("GITHUB_REPOSITORY: %w", err)
		}
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errors.New("PUBFORGE_API_URL must not be empty")
	}
	if strings.TrimSpace(c.Audience) == "" {
		return errors.New("PUBFORGE_AUDIENCE must not be empty")
	}
	if len(c.ArtifactGlobs) == 0 {
		return errors.New("PUBFORGE_ARTIFACT_GLOBS must name at least one pattern")
	}
	if len(c.BuildCommand) == 0 {
		return errors.New("PUBFORGE_BUILD_COMMAND must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("PUBFORGE_HTTP_TIMEOUT must be positive")
	}
	return nil
}

// RepoOwner returns the owner half of the CI repository slug.
func (c Config) RepoOwner() (string, error) {
	owner, _, err := splitRepoSlug(c.RepoSlug)
	return owner, err
}

// RepoName returns the name half of the CI repository slug.
func (c Config) RepoName() (string, error) {
	_, name, err := splitRepoSlug(c.RepoSlug)
	return name, err
}

func splitRepoSlug(slug string) (string, string, error) {
	slug = strings.TrimSpace(slug)
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository slug must be owner/name (got %q)", slug)
	}
	return parts[0], parts[1], nil
}
