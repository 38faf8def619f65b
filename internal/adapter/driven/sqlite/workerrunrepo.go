package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorkerRunStore = (*WorkerRunRepo)(nil)

// WorkerRunRepo is the SQLite implementation of the WorkerRunStore port.
type WorkerRunRepo struct {
	db *DB
}

// NewWorkerRunRepo creates a new WorkerRunRepo backed by the given DB.
func NewWorkerRunRepo(db *DB) *WorkerRunRepo {
	return &WorkerRunRepo{db: db}
}

// Insert creates a run row.
func (r *WorkerRunRepo) Insert(ctx context.Context, run model.WorkerRun) error {
	const query = `
		INSERT INTO worker_runs (id, worker_name, status, started_at, ended_at, summary, error_details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endedAt sql.NullString
	if run.EndedAt != nil {
		endedAt = sql.NullString{String: formatTime(*run.EndedAt), Valid: true}
	}

	errorDetails, err := marshalErrorDetails(run.ErrorDetails)
	if err != nil {
		return err
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		run.ID, run.WorkerName, string(run.Status), formatTime(run.StartedAt),
		endedAt, run.Summary, errorDetails, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert worker run %q: %w", run.ID, err)
	}

	return nil
}

// Finish updates the run with the given id to a terminal status.
func (r *WorkerRunRepo) Finish(ctx context.Context, id string, status model.WorkerRunStatus, endedAt time.Time, summary string, errorDetails map[string]any) error {
	const query = `
		UPDATE worker_runs SET status = ?, ended_at = ?, summary = ?, error_details = ?
		WHERE id = ?
	`

	details, err := marshalErrorDetails(errorDetails)
	if err != nil {
		return err
	}

	result, err := r.db.Writer.ExecContext(ctx, query, string(status), formatTime(endedAt), summary, details, id)
	if err != nil {
		return fmt.Errorf("finish worker run %q: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("worker run %q not found", id)
	}

	return nil
}

// ListRecent returns the most recent runs, newest first.
func (r *WorkerRunRepo) ListRecent(ctx context.Context, limit int) ([]model.WorkerRun, error) {
	const query = `
		SELECT id, worker_name, status, started_at, ended_at, summary, error_details, created_at
		FROM worker_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query worker runs: %w", err)
	}
	defer rows.Close()

	var runs []model.WorkerRun
	for rows.Next() {
		var run model.WorkerRun
		var status, startedAt, createdAt string
		var endedAt, errorDetails sql.NullString

		if err := rows.Scan(&run.ID, &run.WorkerName, &status, &startedAt, &endedAt, &run.Summary, &errorDetails, &createdAt); err != nil {
			return nil, fmt.Errorf("scan worker run: %w", err)
		}

		run.Status = model.WorkerRunStatus(status)

		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if endedAt.Valid && endedAt.String != "" {
			t, err := parseTime(endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			run.EndedAt = &t
		}
		if errorDetails.Valid && errorDetails.String != "" {
			if err := json.Unmarshal([]byte(errorDetails.String), &run.ErrorDetails); err != nil {
				return nil, fmt.Errorf("unmarshal error details: %w", err)
			}
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker runs: %w", err)
	}

	return runs, nil
}

func marshalErrorDetails(details map[string]any) (sql.NullString, error) {
	if details == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal error details: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
