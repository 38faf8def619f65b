package model

import "time"

// WorkerRun is the operational log of one sync worker invocation. One row is
// inserted at start (status Started) and updated in place at completion; if
// the start insert failed, a best-effort fallback row is inserted at
// completion so no run goes unlogged.
type WorkerRun struct {
	ID           string
	WorkerName   string
	Status       WorkerRunStatus
	StartedAt    time.Time
	EndedAt      *time.Time
	Summary      string
	ErrorDetails map[string]any
	CreatedAt    time.Time
}

// SyncOutcome aggregates the per-project counters of one sync worker run.
type SyncOutcome struct {
	Candidates int
	Successes  int
	Snapshots  int
	Errors     int
}

// Classify maps the counters onto a terminal run status:
//
//	Success          zero errors and at least one successful update/snapshot
//	Partial Success  at least one error and at least one success
//	Failure          at least one error and zero successes
//	No Action Needed zero errors and nothing to do or nothing changed
func (o SyncOutcome) Classify() WorkerRunStatus {
	switch {
	case o.Errors > 0 && o.Successes > 0:
		return RunStatusPartialSuccess
	case o.Errors > 0:
		return RunStatusFailure
	case o.Successes > 0 || o.Snapshots > 0:
		return RunStatusSuccess
	default:
		return RunStatusNoActionNeeded
	}
}
