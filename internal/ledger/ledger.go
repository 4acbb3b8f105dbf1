package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/forgeci/pubforge/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS publish_runs (
	run_id            TEXT PRIMARY KEY,
	repo_owner        TEXT NOT NULL,
	repo_name         TEXT NOT NULL,
	ref               TEXT NOT NULL,
	commit_sha        TEXT NOT NULL,
	organization      TEXT NOT NULL,
	repository        TEXT NOT NULL,
	service_account   TEXT NOT NULL,
	state             TEXT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	recorded_at       TIMESTAMPTZ NOT NULL,
	integrity_sha256  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS publish_step_executions (
	step_execution_id TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL REFERENCES publish_runs(run_id),
	step_name         TEXT NOT NULL,
	status            TEXT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ,
	error_message     TEXT,
	UNIQUE (run_id, step_name)
);`

const insertRunQuery = `INSERT INTO publish_runs (
	run_id, repo_owner, repo_name, ref, commit_sha,
	organization, repository, service_account,
	state, started_at, recorded_at, integrity_sha256
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

const insertStepQuery = `INSERT INTO publish_step_executions (
	step_execution_id, run_id, step_name, status, started_at, finished_at, error_message
) VALUES ($1,$2,$3,$4,$5,$6,$7)`

// Store persists publish runs and their step outcomes. It implements
// the pipeline's result sink; token material never reaches it.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("ledger DSN is not configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) RecordRun(ctx context.Context, run domain.RunContext, state domain.RunState, results []domain.StepResult) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	integrity, err := ComputeIntegritySHA256(run, state, results)
	if err != nil {
		return fmt.Errorf("compute integrity: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, insertRunQuery,
		run.RunID,
		run.RepoOwner,
		run.RepoName,
		run.Ref,
		run.Commit,
		run.Organization,
		run.Repository,
		run.ServiceAccount,
		string(state),
		startedAt.UTC(),
		time.Now().UTC(),
		integrity,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, result := range results {
		var finishedAt sql.NullTime
		if result.FinishedAt != nil && !result.FinishedAt.IsZero() {
			finishedAt = sql.NullTime{Time: result.FinishedAt.UTC(), Valid: true}
		}
		_, err = tx.ExecContext(ctx, insertStepQuery,
			uuid.NewString(),
			run.RunID,
			result.Name,
			string(result.Status),
			result.StartedAt.UTC(),
			finishedAt,
			nullIfEmpty(result.ErrorMessage),
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", result.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
