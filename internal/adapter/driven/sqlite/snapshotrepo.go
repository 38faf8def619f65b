package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotStore = (*SnapshotRepo)(nil)

// SnapshotRepo is the SQLite implementation of the SnapshotStore port.
// The snapshot log is append-only; this repo issues no UPDATE or DELETE.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new SnapshotRepo backed by the given DB.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Insert appends one status snapshot. Details are serialized as a JSON
// object in the TEXT column.
func (r *SnapshotRepo) Insert(ctx context.Context, s model.StatusSnapshot) error {
	const query = `
		INSERT INTO project_status_snapshots (
			project_id, source, status, details, external_id, external_url, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	details := s.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal snapshot details: %w", err)
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		s.ProjectID, s.Source, s.Status, string(detailsJSON),
		s.ExternalID, s.ExternalURL, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot for project %d: %w", s.ProjectID, err)
	}

	return nil
}

// ListByProject returns a project's snapshots newest first. limit 0 means no cap.
func (r *SnapshotRepo) ListByProject(ctx context.Context, projectID int64, limit int) ([]model.StatusSnapshot, error) {
	query := `
		SELECT id, project_id, source, status, details, external_id, external_url, created_at
		FROM project_status_snapshots
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var snapshots []model.StatusSnapshot
	for rows.Next() {
		var s model.StatusSnapshot
		var detailsJSON, createdAt string

		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Source, &s.Status, &detailsJSON, &s.ExternalID, &s.ExternalURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}

		if err := json.Unmarshal([]byte(detailsJSON), &s.Details); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot details: %w", err)
		}

		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snapshots, nil
}
