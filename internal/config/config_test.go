package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PUBFORGE_ORG", "acme")
	t.Setenv("PUBFORGE_REPO", "widgets")
	t.Setenv("PUBFORGE_SERVICE_SLUG", "ci-publisher")
	t.Setenv("GITHUB_REF", "refs/heads/main")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() err=%v", err)
	}
	if cfg.Branch != "main" {
		t.Fatalf("Branch=%q, want main", cfg.Branch)
	}
	if !cfg.Republish {
		t.Fatalf("Republish=false, want true by default")
	}
	if len(cfg.ArtifactGlobs) != 2 {
		t.Fatalf("ArtifactGlobs=%v, want two default patterns", cfg.ArtifactGlobs)
	}
}

func TestFromEnv_MissingOrg(t *testing.T) {
	t.Setenv("PUBFORGE_ORG", "")
	t.Setenv("PUBFORGE_REPO", "widgets")
	t.Setenv("PUBFORGE_SERVICE_SLUG", "ci-publisher")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("FromEnv() expected error for missing org")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PUBFORGE_BRANCH", "release")
	t.Setenv("PUBFORGE_REPUBLISH", "false")
	t.Setenv("PUBFORGE_ARTIFACT_GLOBS", "out/*.whl")
	t.Setenv("PUBFORGE_BUILD_COMMAND", "python3,-m,build,--wheel")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() err=%v", err)
	}
	if cfg.Branch != "release" {
		t.Fatalf("Branch=%q, want release", cfg.Branch)
	}
	if cfg.Republish {
		t.Fatalf("Republish=true, want false")
	}
	if len(cfg.ArtifactGlobs) != 1 || cfg.ArtifactGlobs[0] != "out/*.whl" {
		t.Fatalf("ArtifactGlobs=%v", cfg.ArtifactGlobs)
	}
	if len(cfg.BuildCommand) != 4 || cfg.BuildCommand[3] != "--wheel" {
		t.Fatalf("BuildCommand=%v", cfg.BuildCommand)
	}
}

func TestRepoOwnerName(t *testing.T) {
	setRequired(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() err=%v", err)
	}
	owner, err := cfg.RepoOwner()
	if err != nil {
		t.Fatalf("RepoOwner() err=%v", err)
	}
	if owner != "acme" {
		t.Fatalf("RepoOwner()=%q, want acme", owner)
	}
	name, err := cfg.RepoName()
	if err != nil {
		t.Fatalf("RepoName() err=%v", err)
	}
	if name != "widgets" {
		t.Fatalf("RepoName()=%q, want widgets", name)
	}
}

func TestFromEnv_MissingRef(t *testing.T) {
	setRequired(t)
	t.Setenv("GITHUB_REF", "")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("FromEnv() expected error for missing ref")
	}
}

func TestFromEnv_MalformedRepoSlug(t *testing.T) {
	setRequired(t)
	t.Setenv("GITHUB_REPOSITORY", "just-a-name")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("FromEnv() expected error for malformed repository slug")
	}
}

func TestRepoOwner_EmptySlug(t *testing.T) {
	var cfg Config
	if _, err := cfg.RepoOwner(); err == nil {
		t.Fatalf("RepoOwner() expected error for empty slug")
	}
	if _, err := cfg.RepoName(); err == nil {
		t.Fatalf("RepoName() expected error for empty slug")
	}
}
