package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "dist"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "dist"), "widgets-1.0.0-py3-none-any.whl", "wheel-bytes")
	writeFile(t, filepath.Join(dir, "dist"), "widgets-1.0.0.tar.gz", "sdist-bytes")
	writeFile(t, filepath.Join(dir, "dist"), "notes.txt", "not an artifact")

	artifacts, err := Discover(dir, []string{"dist/*.whl", "dist/*.tar.gz"})
	if err != nil {
		t.Fatalf("Discover() err=%v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("Discover()=%d artifacts, want 2", len(artifacts))
	}
	if artifacts[0].Name != "widgets-1.0.0-py3-none-any.whl" {
		t.Fatalf("first artifact=%q, want wheel (sorted by name)", artifacts[0].Name)
	}
	if artifacts[0].SHA256 == "" || artifacts[0].SizeBytes == 0 {
		t.Fatalf("artifact missing digest or size: %+v", artifacts[0])
	}
	if artifacts[0].ContentType != "application/zip" {
		t.Fatalf("wheel content type=%q", artifacts[0].ContentType)
	}
	if artifacts[1].ContentType != "application/gzip" {
		t.Fatalf("sdist content type=%q", artifacts[1].ContentType)
	}
}

func TestDiscover_NoMatches(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir, []string{"dist/*.whl"})
	if !errors.Is(err, ErrNoArtifacts) {
		t.Fatalf("Discover() err=%v, want ErrNoArtifacts", err)
	}
}

func TestDiscover_DedupAcrossPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widgets-1.0.0.tar.gz", "sdist-bytes")

	artifacts, err := Discover(dir, []string{"*.tar.gz", "widgets-*"})
	if err != nil {
		t.Fatalf("Discover() err=%v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("Discover()=%d artifacts, want 1 after dedup", len(artifacts))
	}
}
