package driven

import (
	"context"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// CIRunStore persists ingested CI pipeline runs with upsert-on-run-id
// semantics, so replaying an identical payload leaves exactly one row.
type CIRunStore interface {
	// Upsert inserts the run or, when a row with the same RunID exists,
	// replaces its fields with the latest payload.
	Upsert(ctx context.Context, run model.CITestRun) error

	// GetByRunID returns the run with the given external run id, or nil, nil.
	GetByRunID(ctx context.Context, runID string) (*model.CITestRun, error)

	// ListRecent returns the most recent runs by ingestion time, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]model.CITestRun, error)
}
