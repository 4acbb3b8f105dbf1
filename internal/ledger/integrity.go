package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/forgeci/pubforge/internal/domain"
)

// ComputeIntegritySHA256 hashes the canonical JSON form of a run
// record. Step results are included in order, so replaying the same run
// yields the same digest.
func ComputeIntegritySHA256(run domain.RunContext, state domain.RunState, results []domain.StepResult) (string, error) {
	type stepPayload struct {
		Name       string     `json:"name"`
		Status     string     `json:"status"`
		StartedAt  time.Time  `json:"started_at"`
		FinishedAt *time.Time `json:"finished_at,omitempty"`
		Error      string     `json:"error,omitempty"`
	}
	payload := struct {
		RunID          string        `json:"run_id"`
		Repository     string        `json:"repository"`
		Ref            string        `json:"ref"`
		Commit         string        `json:"commit"`
		Organization   string        `json:"organization"`
		RepoSlug       string        `json:"repo_slug"`
		ServiceAccount string        `json:"service_account"`
		State          string        `json:"state"`
		Steps          []stepPayload `json:"steps"`
	}{
		RunID:          run.RunID,
		Repository:     run.RepoOwner + "/" + run.RepoName,
		Ref:            run.Ref,
		Commit:         run.Commit,
		Organization:   run.Organization,
		RepoSlug:       run.Repository,
		ServiceAccount: run.ServiceAccount,
		State:          string(state),
		Steps:          make([]stepPayload, 0, len(results)),
	}
	for _, r := range results {
		payload.Steps = append(payload.Steps, stepPayload{
			Name:       r.Name,
			Status:     string(r.Status),
			StartedAt:  r.StartedAt.UTC(),
			FinishedAt: utcOrNil(r.FinishedAt),
			Error:      r.ErrorMessage,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
