package model

import "time"

// StatusSnapshot is one observed status transition from one source, appended
// to the project's immutable event log. Snapshots are never updated or
// deleted after insert; redelivered webhooks produce duplicate snapshots by
// design.
type StatusSnapshot struct {
	ID        int64
	ProjectID int64

	// Source tags the origin of the observation, e.g. "vercel-prod-deployment",
	// "github-ci-main", or "vercel-webhook:deployment.ready".
	Source string
	Status string

	// Details carries platform-specific metadata as a JSON object: commit SHA,
	// run number, actor, deployment URL.
	Details map[string]any

	// ExternalID and ExternalURL identify the deployment or workflow run at
	// the platform, when known.
	ExternalID  string
	ExternalURL string

	// CreatedAt is the platform event time when the platform supplied one,
	// else the ingestion time.
	CreatedAt time.Time
}
