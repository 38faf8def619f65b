package model

import "time"

// CITestRun records one CI pipeline execution for the monitoring app's own
// repository, ingested through the authenticated ingestion endpoint. Rows are
// keyed on RunID; replaying the same payload upserts the existing row rather
// than inserting a second one.
type CITestRun struct {
	ID           int64
	RunID        string
	WorkflowName string
	Branch       string
	CommitSHA    string
	Status       string
	URL          string
	StartedAt    time.Time
	IngestedAt   time.Time
	DurationMS   int64
}
