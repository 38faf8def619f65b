package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PriorityHistoryStore = (*PriorityHistoryRepo)(nil)

// PriorityHistoryRepo is the SQLite implementation of the PriorityHistoryStore
// port. The history is append-only; this repo issues no UPDATE or DELETE.
type PriorityHistoryRepo struct {
	db *DB
}

// NewPriorityHistoryRepo creates a new PriorityHistoryRepo backed by the given DB.
func NewPriorityHistoryRepo(db *DB) *PriorityHistoryRepo {
	return &PriorityHistoryRepo{db: db}
}

// Insert appends one history entry. RecordedAt is stored at nanosecond
// resolution so rapid successive recomputations do not collide on the
// (project_id, recorded_at) unique constraint.
func (r *PriorityHistoryRepo) Insert(ctx context.Context, e model.PriorityHistoryEntry) error {
	const query = `
		INSERT INTO project_priority_history (
			project_id, recorded_at, final_sort_key, calculated_score,
			manual_override_at_time, reason
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		e.ProjectID, formatTime(e.RecordedAt), e.FinalSortKey,
		e.CalculatedScore, nullInt(e.ManualOverrideAtTime), e.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert priority history for project %d: %w", e.ProjectID, err)
	}

	return nil
}

// ListByProject returns a project's history newest first. limit 0 means no cap.
func (r *PriorityHistoryRepo) ListByProject(ctx context.Context, projectID int64, limit int) ([]model.PriorityHistoryEntry, error) {
	query := `
		SELECT id, project_id, recorded_at, final_sort_key, calculated_score,
		       manual_override_at_time, reason
		FROM project_priority_history
		WHERE project_id = ?
		ORDER BY recorded_at DESC
	`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query priority history for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var entries []model.PriorityHistoryEntry
	for rows.Next() {
		var e model.PriorityHistoryEntry
		var recordedAt string
		var override sql.NullInt64

		if err := rows.Scan(&e.ID, &e.ProjectID, &recordedAt, &e.FinalSortKey, &e.CalculatedScore, &override, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan priority history: %w", err)
		}

		if override.Valid {
			v := int(override.Int64)
			e.ManualOverrideAtTime = &v
		}

		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate priority history: %w", err)
	}

	return entries, nil
}
