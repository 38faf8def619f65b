package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIRunRepo_UpsertIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCIRunRepo(db)
	ctx := context.Background()

	run := model.CITestRun{
		RunID:        "run-1001",
		WorkflowName: "ci",
		Branch:       "main",
		CommitSHA:    "abc123",
		Status:       "in_progress",
		URL:          "https://github.com/acme/panopticron/actions/runs/1001",
		StartedAt:    time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		IngestedAt:   time.Date(2026, 8, 20, 10, 1, 0, 0, time.UTC),
		DurationMS:   60000,
	}
	require.NoError(t, repo.Upsert(ctx, run))

	// Replaying with the same run id must leave exactly one row reflecting
	// the latest payload.
	run.Status = "completed"
	run.IngestedAt = run.IngestedAt.Add(5 * time.Minute)
	run.DurationMS = 360000
	require.NoError(t, repo.Upsert(ctx, run))

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, int64(360000), runs[0].DurationMS)
}

func TestCIRunRepo_GetByRunID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCIRunRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, model.CITestRun{
		RunID:        "run-7",
		WorkflowName: "ci",
		Branch:       "main",
		CommitSHA:    "def456",
		Status:       "completed",
		StartedAt:    time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		IngestedAt:   time.Date(2026, 8, 20, 9, 2, 0, 0, time.UTC),
	}))

	got, err := repo.GetByRunID(ctx, "run-7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ci", got.WorkflowName)
	assert.Equal(t, "def456", got.CommitSHA)

	missing, err := repo.GetByRunID(ctx, "run-none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
