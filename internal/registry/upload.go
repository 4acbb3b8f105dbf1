package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/forgeci/pubforge/internal/domain"
	"github.com/forgeci/pubforge/internal/platform/httpclient"
)

// ErrVersionConflict marks an upload rejected because the package
// version already exists and republish is disabled.
var ErrVersionConflict = errors.New("package version already exists and republish is disabled")

// Upload pushes one artifact in two phases: the file goes to the upload
// endpoint first, then the package creation request references the
// returned identifier with the republish flag.
func (c *Client) Upload(ctx context.Context, credential string, art domain.Artifact, republish bool) error {
	if err := art.Validate(); err != nil {
		return err
	}

	identifier, err := c.uploadFile(ctx, credential, art)
	if err != nil {
		return err
	}
	return c.createPackage(ctx, credential, art, identifier, republish)
}

func (c *Client) uploadFile(ctx context.Context, credential string, art domain.Artifact) (string, error) {
	f, err := os.Open(art.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	url := fmt.Sprintf("%s/packages/upload/%s/%s/%s", c.baseURL, c.org, c.repo, art.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return "", err
	}
	req.ContentLength = art.SizeBytes
	req.Header.Set("Content-Type", art.ContentType)
	req.Header.Set("Content-Sha256", art.SHA256)
	req.Header.Set("Accept", "application/json")

	resp, err := c.authClient(ctx, credential).Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.StatusError("upload file", resp.StatusCode)
	}

	var body struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(body.Identifier) == "" {
		return "", errors.New("upload response had no identifier")
	}
	return body.Identifier, nil
}

func (c *Client) createPackage(ctx context.Context, credential string, art domain.Artifact, identifier string, republish bool) error {
	payload, err := json.Marshal(map[string]any{
		"package_file": identifier,
		"republish":    republish,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/packages/%s/%s/upload/python/", c.baseURL, c.org, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.authClient(ctx, credential).Do(req)
	if err != nil {
		return fmt.Errorf("create package request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		c.logger.Info("package published",
			"artifact", art.Name,
			"repository", c.org+"/"+c.repo,
			"republish", republish,
		)
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrVersionConflict, art.Name)
	default:
		return httpclient.StatusError("create package", resp.StatusCode)
	}
}
