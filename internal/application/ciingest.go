package application

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// CIRunSubmission is the raw payload of the CI ingestion endpoint, validated
// field by field before anything touches the store.
type CIRunSubmission struct {
	RunID        string `json:"run_id"`
	WorkflowName string `json:"workflow_name"`
	Branch       string `json:"branch"`
	CommitSHA    string `json:"commit_sha"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	StartedAt    string `json:"started_at"`
}

// CIIngestService validates and persists CI pipeline run reports. Ingestion
// is idempotent on run id: a replayed delivery replaces the stored row
// instead of inserting a second one.
type CIIngestService struct {
	runs driven.CIRunStore
	now  func() time.Time
}

// NewCIIngestService creates a CIIngestService.
func NewCIIngestService(runs driven.CIRunStore) *CIIngestService {
	return &CIIngestService{runs: runs, now: time.Now}
}

// Validate checks every field of the submission and returns a map of field
// name to problem description. An empty map means the submission is valid.
func (s *CIIngestService) Validate(sub CIRunSubmission) map[string]string {
	problems := make(map[string]string)

	if sub.RunID == "" {
		problems["run_id"] = "is required"
	}
	if sub.WorkflowName == "" {
		problems["workflow_name"] = "is required"
	}
	if sub.Branch == "" {
		problems["branch"] = "is required"
	}
	if sub.CommitSHA == "" {
		problems["commit_sha"] = "is required"
	}
	if sub.Status == "" {
		problems["status"] = "is required"
	}

	switch {
	case sub.URL == "":
		problems["url"] = "is required"
	default:
		if u, err := url.Parse(sub.URL); err != nil || u.Scheme == "" || u.Host == "" {
			problems["url"] = "must be an absolute URL"
		}
	}

	switch {
	case sub.StartedAt == "":
		problems["started_at"] = "is required"
	default:
		if _, err := time.Parse(time.RFC3339, sub.StartedAt); err != nil {
			problems["started_at"] = "must be an RFC 3339 timestamp"
		}
	}

	return problems
}

// Ingest validates and upserts one CI run report. Validation failures are
// returned as the field-problem map with a nil run; store failures are
// returned as the error. The run's duration is the span from its declared
// start to the moment of ingestion.
func (s *CIIngestService) Ingest(ctx context.Context, sub CIRunSubmission) (*model.CITestRun, map[string]string, error) {
	if problems := s.Validate(sub); len(problems) > 0 {
		return nil, problems, nil
	}

	startedAt, _ := time.Parse(time.RFC3339, sub.StartedAt)
	ingestedAt := s.now()

	duration := ingestedAt.Sub(startedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	run := model.CITestRun{
		RunID:        sub.RunID,
		WorkflowName: sub.WorkflowName,
		Branch:       sub.Branch,
		CommitSHA:    sub.CommitSHA,
		Status:       sub.Status,
		URL:          sub.URL,
		StartedAt:    startedAt,
		IngestedAt:   ingestedAt,
		DurationMS:   duration,
	}

	if err := s.runs.Upsert(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("upserting ci run %s: %w", sub.RunID, err)
	}

	return &run, nil, nil
}
