package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgeci/pubforge/internal/domain"
)

// ErrNoArtifacts indicates the build produced nothing matching the
// configured patterns. Publishing must never be attempted in that case.
var ErrNoArtifacts = errors.New("no artifacts matched the configured patterns")

// Discover globs the work directory for distributable files, computing
// size and content digest per match. Results are sorted by filename.
func Discover(workDir string, globs []string) ([]domain.Artifact, error) {
	if len(globs) == 0 {
		return nil, errors.New("at least one glob pattern is required")
	}

	seen := make(map[string]struct{})
	var artifacts []domain.Artifact
	for _, pattern := range globs {
		matches, err := filepath.Glob(filepath.Join(workDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}

			art, err := describe(path)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, art)
		}
	}

	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoArtifacts, strings.Join(globs, ", "))
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

func describe(path string) (domain.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("digest artifact %s: %w", filepath.Base(path), err)
	}

	art := domain.Artifact{
		Path:        path,
		Name:        filepath.Base(path),
		SizeBytes:   size,
		SHA256:      hex.EncodeToString(h.Sum(nil)),
		ContentType: contentTypeFor(path),
	}
	if err := art.Validate(); err != nil {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", art.Name, err)
	}
	return art, nil
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".whl"):
		return "application/zip"
	case strings.HasSuffix(path, ".tar.gz"):
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}
