package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityHistoryRepo_InsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPriorityHistoryRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_h1")

	err := repo.Insert(ctx, model.PriorityHistoryEntry{
		ProjectID:            project.ID,
		RecordedAt:           time.Date(2026, 8, 20, 10, 0, 0, 123456789, time.UTC),
		FinalSortKey:         150,
		CalculatedScore:      8000,
		ManualOverrideAtTime: intPtr(150),
		Reason:               "Manual override set: 150",
	})
	require.NoError(t, err)

	entries, err := repo.ListByProject(ctx, project.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, 150, e.FinalSortKey)
	assert.Equal(t, 8000, e.CalculatedScore)
	require.NotNil(t, e.ManualOverrideAtTime)
	assert.Equal(t, 150, *e.ManualOverrideAtTime)
	// Nanosecond precision must survive the round trip; it is what keeps
	// same-second inserts from colliding on the unique constraint.
	assert.Equal(t, time.Date(2026, 8, 20, 10, 0, 0, 123456789, time.UTC), e.RecordedAt)
}

func TestPriorityHistoryRepo_SameSecondEntriesDoNotCollide(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPriorityHistoryRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_h2")

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, model.PriorityHistoryEntry{
			ProjectID:       project.ID,
			RecordedAt:      base.Add(time.Duration(i) * time.Microsecond),
			FinalSortKey:    10000 - i,
			CalculatedScore: 10000 - i,
			Reason:          "Vercel status changed",
		}))
	}

	entries, err := repo.ListByProject(ctx, project.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPriorityHistoryRepo_DuplicateTimestampRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPriorityHistoryRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_h3")

	e := model.PriorityHistoryEntry{
		ProjectID:       project.ID,
		RecordedAt:      time.Date(2026, 8, 20, 10, 0, 0, 500, time.UTC),
		FinalSortKey:    9000,
		CalculatedScore: 9000,
	}
	require.NoError(t, repo.Insert(ctx, e))

	err := repo.Insert(ctx, e)
	assert.Error(t, err, "(project_id, recorded_at) is unique")
}

func TestPriorityHistoryRepo_ListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPriorityHistoryRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_h4")

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i, key := range []int{10000, 7000, 150} {
		require.NoError(t, repo.Insert(ctx, model.PriorityHistoryEntry{
			ProjectID:       project.ID,
			RecordedAt:      base.Add(time.Duration(i) * time.Second),
			FinalSortKey:    key,
			CalculatedScore: key,
		}))
	}

	entries, err := repo.ListByProject(ctx, project.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 150, entries[0].FinalSortKey)
	assert.Equal(t, 7000, entries[1].FinalSortKey)
}
