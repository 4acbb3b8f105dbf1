package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Claims is the subset of the CI identity token's payload that the
// trust preflight cares about. Field names follow the GitHub Actions
// token claim set.
type Claims struct {
	Issuer          string `json:"iss"`
	Subject         string `json:"sub"`
	Repository      string `json:"repository"`
	RepositoryOwner string `json:"repository_owner"`
	Ref             string `json:"ref"`
	SHA             string `json:"sha"`
	Workflow        string `json:"workflow"`
	EventName       string `json:"event_name"`
}

// ParseUnverified decodes the token payload without checking the
// signature. Signature verification, when an issuer is configured,
// happens separately against the issuer's published keys; the registry
// performs its own verification during the exchange either way.
func ParseUnverified(rawToken string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(rawToken), ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("identity token is not a compact JWT (%d segments)", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decode token payload: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}

// Map flattens the claims for rule evaluation.
func (c Claims) Map() map[string]string {
	return map[string]string{
		"iss":              c.Issuer,
		"sub":              c.Subject,
		"repository":       c.Repository,
		"repository_owner": c.RepositoryOwner,
		"ref":              c.Ref,
		"sha":              c.SHA,
		"workflow":         c.Workflow,
		"event_name":       c.EventName,
	}
}
