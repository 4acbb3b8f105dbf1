package buildtool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step invokes the packaging tool in the project directory. Tool output
// is surfaced verbatim on failure; artifact discovery happens in a
// later step only after the tool exits cleanly.
type Step struct {
	logger  *slog.Logger
	command []string
	workDir string
}

func New(logger *slog.Logger, command []string, workDir string) (*Step, error) {
	if len(command) == 0 {
		return nil, errors.New("build command is required")
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("build tool not found: %w", err)
	}
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		workDir = "."
	}
	return &Step{logger: logger, command: command, workDir: workDir}, nil
}

func (s *Step) Name() string { return "build" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Dir = s.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("build failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	s.logger.Info("build completed",
		"run_id", run.Context.RunID,
		"command", strings.Join(s.command, " "),
	)
	return nil
}
