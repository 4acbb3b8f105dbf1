package checkout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step fetches the repository state at the triggering commit. When the
// CI workspace is already checked out at that commit the network fetch
// is skipped.
type Step struct {
	gitBin  string
	gitURL  string
	workDir string
}

func New(gitURL, workDir string) (*Step, error) {
	gitBin, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git binary not found: %w", err)
	}
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		workDir = "."
	}
	return &Step{gitBin: gitBin, gitURL: strings.TrimSpace(gitURL), workDir: workDir}, nil
}

func (s *Step) Name() string { return "checkout" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	commit := strings.TrimSpace(run.Context.Commit)
	if commit == "" {
		return errors.New("triggering commit is unknown")
	}

	if s.isWorkTree(ctx) {
		head, err := s.headCommit(ctx)
		if err != nil {
			return err
		}
		if head == commit {
			return nil
		}
		if err := s.git(ctx, "fetch", "--depth", "1", "origin", commit); err != nil {
			return err
		}
		return s.git(ctx, "checkout", "--force", commit)
	}

	if s.gitURL == "" {
		return fmt.Errorf("workspace %s is not a git work tree and no clone URL is configured", s.workDir)
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if err := s.git(ctx, "clone", "--no-checkout", s.gitURL, "."); err != nil {
		return err
	}
	return s.git(ctx, "checkout", "--force", commit)
}

func (s *Step) isWorkTree(ctx context.Context) bool {
	if _, err := os.Stat(filepath.Join(s.workDir, ".git")); err != nil {
		return false
	}
	cmd := exec.CommandContext(ctx, s.gitBin, "rev-parse", "--is-inside-work-tree")
	cmd.Dir = s.workDir
	out, err := cmd.CombinedOutput()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func (s *Step) headCommit(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, s.gitBin, "rev-parse", "HEAD")
	cmd.Dir = s.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *Step) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, s.gitBin, args...)
	cmd.Dir = s.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
