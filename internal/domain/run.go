package domain

import (
	"errors"
	"strings"
	"time"
)

// RunContext carries the identity of a single publish run. It is created
// at trigger time and discarded when the run ends; nothing in it is
// persisted except through the optional ledger.
type RunContext struct {
	RunID          string
	RepoOwner      string
	RepoName       string
	Ref            string
	Commit         string
	Organization   string
	Repository     string
	ServiceAccount string
	StartedAt      time.Time
}

func (r RunContext) Validate() error {
	if strings.TrimSpace(r.RunID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(r.Organization) == "" {
		return errors.New("organization slug is required")
	}
	if strings.TrimSpace(r.Repository) == "" {
		return errors.New("repository slug is required")
	}
	if strings.TrimSpace(r.ServiceAccount) == "" {
		return errors.New("service account slug is required")
	}
	return nil
}

// BranchName strips a refs/heads/ prefix so config can name the branch
// either way.
func (r RunContext) BranchName() string {
	return strings.TrimPrefix(strings.TrimSpace(r.Ref), "refs/heads/")
}
