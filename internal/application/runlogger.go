package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// RunLogger records sync worker invocations in the worker_runs table. Logging
// is strictly best-effort: a run logger failure never fails the sync itself.
type RunLogger struct {
	store driven.WorkerRunStore
	now   func() time.Time
}

// NewRunLogger creates a RunLogger.
func NewRunLogger(store driven.WorkerRunStore) *RunLogger {
	return &RunLogger{store: store, now: time.Now}
}

// StartRun inserts the Started row for a worker invocation and returns its
// id. On insert failure the error is logged and "" is returned; FinishRun
// compensates with a fallback row so the run is still recorded.
func (l *RunLogger) StartRun(ctx context.Context, workerName string) string {
	run := model.WorkerRun{
		ID:         uuid.NewString(),
		WorkerName: workerName,
		Status:     model.RunStatusStarted,
		StartedAt:  l.now(),
	}

	if err := l.store.Insert(ctx, run); err != nil {
		slog.Error("worker run start insert failed", "worker", workerName, "error", err)
		return ""
	}

	return run.ID
}

// FinishRun marks the run terminal. When id is empty (the start insert
// failed) it inserts a complete fallback row instead, so every invocation
// leaves exactly one worker_runs row.
func (l *RunLogger) FinishRun(ctx context.Context, id, workerName string, status model.WorkerRunStatus, startedAt time.Time, summary string, errorDetails map[string]any) {
	endedAt := l.now()

	if id == "" {
		fallback := model.WorkerRun{
			ID:           uuid.NewString(),
			WorkerName:   workerName,
			Status:       status,
			StartedAt:    startedAt,
			EndedAt:      &endedAt,
			Summary:      summary,
			ErrorDetails: errorDetails,
		}
		if err := l.store.Insert(ctx, fallback); err != nil {
			slog.Error("worker run fallback insert failed", "worker", workerName, "error", err)
		}
		return
	}

	if err := l.store.Finish(ctx, id, status, endedAt, summary, errorDetails); err != nil {
		slog.Error("worker run finish failed", "worker", workerName, "run_id", id, "error", err)
	}
}
