package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/forgeci/pubforge/internal/pipeline"
)

// Step verifies the required Python interpreter is available. When a
// version constraint is configured the reported version must match it
// exactly or by release prefix ("3.11" accepts "3.11.4").
type Step struct {
	pythonBin string
	required  string
}

func New(pythonBin, requiredVersion string) (*Step, error) {
	pythonBin = strings.TrimSpace(pythonBin)
	if pythonBin == "" {
		pythonBin = "python3"
	}
	resolved, err := exec.LookPath(pythonBin)
	if err != nil {
		return nil, fmt.Errorf("python binary not found: %w", err)
	}
	return &Step{pythonBin: resolved, required: strings.TrimSpace(requiredVersion)}, nil
}

func (s *Step) Name() string { return "toolchain" }

func (s *Step) Run(ctx context.Context, run *pipeline.Run) error {
	cmd := exec.CommandContext(ctx, s.pythonBin, "--version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("python --version failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	version, err := ParseVersion(string(out))
	if err != nil {
		return err
	}
	if !Matches(version, s.required) {
		return fmt.Errorf("python version %s does not satisfy required %s", version, s.required)
	}
	return nil
}

// ParseVersion extracts the version number from `python --version`
// output ("Python 3.11.4" -> "3.11.4").
func ParseVersion(output string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) < 2 || !strings.EqualFold(fields[0], "python") {
		return "", fmt.Errorf("unrecognized interpreter version output: %q", strings.TrimSpace(output))
	}
	return fields[1], nil
}

// Matches reports whether version satisfies the constraint. An empty
// constraint accepts any version.
func Matches(version, constraint string) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true
	}
	if version == constraint {
		return true
	}
	return strings.HasPrefix(version, constraint+".")
}
