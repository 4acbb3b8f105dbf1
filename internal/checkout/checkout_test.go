package checkout

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgeci/pubforge/internal/domain"
	"github.com/forgeci/pubforge/internal/pipeline"
)

func gitOut(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v: %s", args[0], err, out)
	}
	return strings.TrimSpace(string(out))
}

// initRepo creates a repository with one commit and no origin remote,
// so any attempted fetch fails loudly.
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitOut(t, dir, "init")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("widgets\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	gitOut(t, dir, "add", "README")
	gitOut(t, dir, "commit", "-m", "initial")
	return dir, gitOut(t, dir, "rev-parse", "HEAD")
}

func runFor(commit string) *pipeline.Run {
	return &pipeline.Run{Context: domain.RunContext{Commit: commit}}
}

func TestStep_SkipsFetchWhenHeadMatches(t *testing.T) {
	dir, head := initRepo(t)

	step, err := New("", dir)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	// The repo has no origin, so success means no fetch was attempted.
	if err := step.Run(context.Background(), runFor(head)); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
}

func TestStep_FetchesWhenHeadDiffers(t *testing.T) {
	dir, first := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("widgets v2\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	gitOut(t, dir, "add", "README")
	gitOut(t, dir, "commit", "-m", "second")

	step, err := New("", dir)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	err = step.Run(context.Background(), runFor(first))
	if err == nil {
		t.Fatalf("Run() expected fetch against the missing origin to fail")
	}
	if !strings.Contains(err.Error(), "fetch") {
		t.Fatalf("Run() err=%v, want a fetch failure", err)
	}
}

func TestStep_ErrorsWithoutWorkTreeOrCloneURL(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	step, err := New("", dir)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	err = step.Run(context.Background(), runFor("deadbeef"))
	if err == nil {
		t.Fatalf("Run() expected error for bare workspace without clone URL")
	}
	if !strings.Contains(err.Error(), "clone URL") {
		t.Fatalf("Run() err=%v, want missing clone URL", err)
	}
}

func TestStep_ErrorsWithoutCommit(t *testing.T) {
	dir, _ := initRepo(t)

	step, err := New("", dir)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := step.Run(context.Background(), runFor("")); err == nil {
		t.Fatalf("Run() expected error for unknown commit")
	}
}
