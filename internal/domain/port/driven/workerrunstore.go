package driven

import (
	"context"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// WorkerRunStore persists the operational log of sync worker invocations.
type WorkerRunStore interface {
	// Insert creates a run row, either the Started row at invocation start or
	// the fallback completed row when the start insert itself failed.
	Insert(ctx context.Context, run model.WorkerRun) error

	// Finish updates the run with the given id to a terminal status.
	Finish(ctx context.Context, id string, status model.WorkerRunStatus, endedAt time.Time, summary string, errorDetails map[string]any) error

	// ListRecent returns the most recent runs, newest first, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]model.WorkerRun, error)
}
