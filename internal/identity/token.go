package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/forgeci/pubforge/internal/platform/env"
	"github.com/forgeci/pubforge/internal/platform/httpclient"
)

// Config locates the CI provider's identity token endpoint. The URL and
// request token are injected into the job environment by the provider
// when the workflow holds the id-token permission.
type Config struct {
	RequestURL   string
	RequestToken string
	Audience     string
}

func ConfigFromEnv(audience string) (Config, error) {
	cfg := Config{
		RequestURL:   env.String("ACTIONS_ID_TOKEN_REQUEST_URL", ""),
		RequestToken: env.String("ACTIONS_ID_TOKEN_REQUEST_TOKEN", ""),
		Audience:     audience,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.RequestURL) == "" {
		return errors.New("identity token request URL is missing; does the workflow grant id-token permission?")
	}
	if strings.TrimSpace(c.RequestToken) == "" {
		return errors.New("identity token request token is missing")
	}
	if strings.TrimSpace(c.Audience) == "" {
		return errors.New("audience is required")
	}
	return nil
}

// Fetcher retrieves a signed identity token scoped to the configured
// audience. The token is returned to the caller only; it is never
// written to the environment or logged.
type Fetcher struct {
	cfg    Config
	client *http.Client
}

func NewFetcher(cfg Config, client *http.Client) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{cfg: cfg, client: client}, nil
}

func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	u, err := url.Parse(f.cfg.RequestURL)
	if err != nil {
		return "", fmt.Errorf("parse token endpoint: %w", err)
	}
	q := u.Query()
	q.Set("audience", f.cfg.Audience)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "bearer "+f.cfg.RequestToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", httpclient.StatusError("identity token request", resp.StatusCode)
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode identity token response: %w", err)
	}
	if strings.TrimSpace(body.Value) == "" {
		return "", errors.New("identity token response had no value")
	}
	return body.Value, nil
}
