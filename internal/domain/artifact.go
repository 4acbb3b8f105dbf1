package domain

import (
	"errors"
	"strings"
)

// Artifact is a distributable file produced by the build step and
// consumed exactly once by the publish step.
type Artifact struct {
	Path        string
	Name        string
	SizeBytes   int64
	SHA256      string
	ContentType string
}

func (a Artifact) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return errors.New("artifact path is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("artifact name is required")
	}
	if strings.TrimSpace(a.SHA256) == "" {
		return errors.New("sha256 is required")
	}
	if a.SizeBytes <= 0 {
		return errors.New("size must be positive")
	}
	return nil
}
