package identity

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ACTIONS_ID_TOKEN_REQUEST_URL", "https://token.example/req")
	t.Setenv("ACTIONS_ID_TOKEN_REQUEST_TOKEN", "req-token")

	cfg, err := ConfigFromEnv("api.cloudsmith.io")
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Audience != "api.cloudsmith.io" {
		t.Fatalf("Audience=%q", cfg.Audience)
	}
}

func TestConfigFromEnv_MissingURL(t *testing.T) {
	t.Setenv("ACTIONS_ID_TOKEN_REQUEST_URL", "")
	t.Setenv("ACTIONS_ID_TOKEN_REQUEST_TOKEN", "req-token")

	if _, err := ConfigFromEnv("aud"); err == nil {
		t.Fatalf("ConfigFromEnv() expected error for missing URL")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("audience"); got != "api.cloudsmith.io" {
			t.Errorf("audience=%q, want api.cloudsmith.io", got)
		}
		if got := r.Header.Get("Authorization"); got != "bearer req-token" {
			t.Errorf("Authorization=%q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"header.payload.sig"}`))
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(Config{
		RequestURL:   srv.URL,
		RequestToken: "req-token",
		Audience:     "api.cloudsmith.io",
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewFetcher() err=%v", err)
	}

	token, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() err=%v", err)
	}
	if token != "header.payload.sig" {
		t.Fatalf("Fetch()=%q", token)
	}
}

func TestFetch_PermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(Config{
		RequestURL:   srv.URL,
		RequestToken: "req-token",
		Audience:     "aud",
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewFetcher() err=%v", err)
	}

	if _, err := fetcher.Fetch(context.Background()); err == nil {
		t.Fatalf("Fetch() expected error for 403")
	}
}

func TestFetch_EmptyValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":""}`))
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(Config{
		RequestURL:   srv.URL,
		RequestToken: "req-token",
		Audience:     "aud",
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewFetcher() err=%v", err)
	}

	if _, err := fetcher.Fetch(context.Background()); err == nil {
		t.Fatalf("Fetch() expected error for empty token value")
	}
}

func makeToken(t *testing.T, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"RS256"}`)) + "." + enc([]byte(payload)) + "." + enc([]byte("sig"))
}

func TestParseUnverified(t *testing.T) {
	token := makeToken(t, `{
		"iss": "https://token.actions.githubusercontent.com",
		"sub": "repo:acme/widgets:ref:refs/heads/main",
		"repository": "acme/widgets",
		"repository_owner": "acme",
		"ref": "refs/heads/main",
		"sha": "deadbeef"
	}`)

	claims, err := ParseUnverified(token)
	if err != nil {
		t.Fatalf("ParseUnverified() err=%v", err)
	}
	if claims.RepositoryOwner != "acme" {
		t.Fatalf("RepositoryOwner=%q, want acme", claims.RepositoryOwner)
	}
	if claims.Ref != "refs/heads/main" {
		t.Fatalf("Ref=%q", claims.Ref)
	}

	m := claims.Map()
	if m["repository"] != "acme/widgets" {
		t.Fatalf("Map()[repository]=%q", m["repository"])
	}
}

func TestParseUnverified_NotAJWT(t *testing.T) {
	if _, err := ParseUnverified("not-a-jwt"); err == nil {
		t.Fatalf("ParseUnverified() expected error")
	}
}
