package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panopticron/panopticron/internal/application"
	"github.com/panopticron/panopticron/internal/domain/model"
)

func TestRunLogger_StartAndFinish(t *testing.T) {
	store := &mockWorkerRunStore{}
	logger := application.NewRunLogger(store)
	ctx := context.Background()

	id := logger.StartRun(ctx, "vercel-sync")
	require.NotEmpty(t, id)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, id, store.inserted[0].ID)
	assert.Equal(t, "vercel-sync", store.inserted[0].WorkerName)
	assert.Equal(t, model.RunStatusStarted, store.inserted[0].Status)

	logger.FinishRun(ctx, id, "vercel-sync", model.RunStatusSuccess, store.inserted[0].StartedAt,
		"Processed: 2, Succeeded: 2, Snapshots: 2, Errors: 0", nil)

	require.Len(t, store.finished, 1)
	assert.Equal(t, id, store.finished[0].ID)
	assert.Equal(t, model.RunStatusSuccess, store.finished[0].Status)
	assert.Contains(t, store.finished[0].Summary, "Succeeded: 2")
}

func TestRunLogger_StartFailureYieldsEmptyID(t *testing.T) {
	store := &mockWorkerRunStore{insertErr: errors.New("db locked")}
	logger := application.NewRunLogger(store)

	id := logger.StartRun(context.Background(), "github-sync")
	assert.Empty(t, id, "a failed start insert must not fail the sync, only return no id")
}

func TestRunLogger_FallbackRowWhenStartFailed(t *testing.T) {
	store := &mockWorkerRunStore{}
	logger := application.NewRunLogger(store)
	startedAt := time.Now().Add(-3 * time.Second)

	logger.FinishRun(context.Background(), "", "github-sync", model.RunStatusFailure, startedAt,
		"Processed: 1, Succeeded: 0, Snapshots: 0, Errors: 1",
		map[string]any{"projects": map[string]string{"site": "boom"}})

	// No Started row existed, so the run is recorded as a single complete row.
	require.Len(t, store.inserted, 1)
	require.Empty(t, store.finished)

	fallback := store.inserted[0]
	assert.NotEmpty(t, fallback.ID)
	assert.Equal(t, model.RunStatusFailure, fallback.Status)
	assert.True(t, fallback.StartedAt.Equal(startedAt))
	require.NotNil(t, fallback.EndedAt)
	assert.NotNil(t, fallback.ErrorDetails)
}
