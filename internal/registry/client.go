package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/forgeci/pubforge/internal/platform/httpclient"
)

// ErrExchangeRejected marks an OIDC exchange the registry refused:
// claim mismatch against its trust policy, or an unknown service
// account slug. Fail closed, no retry.
var ErrExchangeRejected = errors.New("registry rejected the OIDC exchange")

// Client talks to a Cloudsmith-style package registry API.
type Client struct {
	logger  *slog.Logger
	baseURL string
	org     string
	repo    string
	http    *http.Client
}

func New(logger *slog.Logger, baseURL, org, repo string, client *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if strings.TrimSpace(org) == "" {
		return nil, errors.New("organization slug is required")
	}
	if strings.TrimSpace(repo) == "" {
		return nil, errors.New("repository slug is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{logger: logger, baseURL: baseURL, org: org, repo: repo, http: client}, nil
}

// Exchange presents the identity token and service account slug to the
// registry's OIDC endpoint and returns the short-lived credential. The
// credential is scoped to the service account and lives only for the
// rest of the run.
func (c *Client) Exchange(ctx context.Context, identityToken, serviceSlug string) (string, error) {
	if strings.TrimSpace(identityToken) == "" {
		return "", errors.New("identity token is required")
	}
	if strings.TrimSpace(serviceSlug) == "" {
		return "", errors.New("service account slug is required")
	}

	payload, err := json.Marshal(map[string]string{
		"oidc_token":   identityToken,
		"service_slug": serviceSlug,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/openid/%s/", c.baseURL, c.org)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: status %d", ErrExchangeRejected, resp.StatusCode)
	default:
		return "", httpclient.StatusError("exchange", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode exchange response: %w", err)
	}
	if strings.TrimSpace(body.Token) == "" {
		return "", errors.New("exchange response had no token")
	}
	return body.Token, nil
}

// Identity is the registry's view of the authenticated caller.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
}

// Self queries the authenticated-identity endpoint with the exchanged
// credential, surfacing a bad credential before any upload happens.
func (c *Client) Self(ctx context.Context, credential string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/self/", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.authClient(ctx, credential).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("self request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, httpclient.StatusError("self", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&identity); err != nil {
		return Identity{}, fmt.Errorf("decode self response: %w", err)
	}
	if !identity.Authenticated {
		return Identity{}, errors.New("registry reports the credential as unauthenticated")
	}
	return identity, nil
}

// authClient wraps the shared transport with a static bearer token
// source for the exchanged credential.
func (c *Client) authClient(ctx context.Context, credential string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, src)
}
