package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CIRunStore = (*CIRunRepo)(nil)

// CIRunRepo is the SQLite implementation of the CIRunStore port.
type CIRunRepo struct {
	db *DB
}

// NewCIRunRepo creates a new CIRunRepo backed by the given DB.
func NewCIRunRepo(db *DB) *CIRunRepo {
	return &CIRunRepo{db: db}
}

// Upsert inserts the run or replaces the fields of the row with the same
// run_id, so replaying an identical payload leaves exactly one row
// reflecting the latest delivery.
func (r *CIRunRepo) Upsert(ctx context.Context, run model.CITestRun) error {
	const query = `
		INSERT INTO ci_test_runs (
			run_id, workflow_name, branch, commit_sha, status, url,
			started_at, ingested_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			workflow_name = excluded.workflow_name,
			branch = excluded.branch,
			commit_sha = excluded.commit_sha,
			status = excluded.status,
			url = excluded.url,
			started_at = excluded.started_at,
			ingested_at = excluded.ingested_at,
			duration_ms = excluded.duration_ms
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.RunID, run.WorkflowName, run.Branch, run.CommitSHA, run.Status,
		run.URL, formatTime(run.StartedAt), formatTime(run.IngestedAt), run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("upsert ci run %q: %w", run.RunID, err)
	}

	return nil
}

// GetByRunID returns the run with the given external run id, or nil, nil.
func (r *CIRunRepo) GetByRunID(ctx context.Context, runID string) (*model.CITestRun, error) {
	const query = `
		SELECT id, run_id, workflow_name, branch, commit_sha, status, url,
		       started_at, ingested_at, duration_ms
		FROM ci_test_runs
		WHERE run_id = ?
	`

	run, err := scanCIRun(r.db.Reader.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ci run %q: %w", runID, err)
	}

	return run, nil
}

// ListRecent returns the most recent runs by ingestion time, newest first.
func (r *CIRunRepo) ListRecent(ctx context.Context, limit int) ([]model.CITestRun, error) {
	const query = `
		SELECT id, run_id, workflow_name, branch, commit_sha, status, url,
		       started_at, ingested_at, duration_ms
		FROM ci_test_runs
		ORDER BY ingested_at DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ci runs: %w", err)
	}
	defer rows.Close()

	var runs []model.CITestRun
	for rows.Next() {
		run, err := scanCIRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ci run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ci runs: %w", err)
	}

	return runs, nil
}

func scanCIRun(s scanner) (*model.CITestRun, error) {
	var run model.CITestRun
	var startedAt, ingestedAt string

	err := s.Scan(
		&run.ID, &run.RunID, &run.WorkflowName, &run.Branch, &run.CommitSHA,
		&run.Status, &run.URL, &startedAt, &ingestedAt, &run.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.IngestedAt, err = parseTime(ingestedAt); err != nil {
		return nil, fmt.Errorf("parse ingested_at: %w", err)
	}

	return &run, nil
}
