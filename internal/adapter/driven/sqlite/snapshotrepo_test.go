package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertTestProject(t *testing.T, db *DB, name, vercelID string) *model.Project {
	t.Helper()
	p, err := NewProjectRepo(db).Insert(context.Background(), makeProject(name, vercelID))
	require.NoError(t, err)
	return p
}

func TestSnapshotRepo_InsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_s1")

	err := repo.Insert(ctx, model.StatusSnapshot{
		ProjectID:   project.ID,
		Source:      model.SourceVercelProdDeployment,
		Status:      "READY",
		Details:     map[string]any{"commit_sha": "abc123", "actor": "deploybot"},
		ExternalID:  "dpl_1",
		ExternalURL: "https://site.vercel.app",
		CreatedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	snapshots, err := repo.ListByProject(ctx, project.ID, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	s := snapshots[0]
	assert.Equal(t, model.SourceVercelProdDeployment, s.Source)
	assert.Equal(t, "READY", s.Status)
	assert.Equal(t, "abc123", s.Details["commit_sha"])
	assert.Equal(t, "dpl_1", s.ExternalID)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), s.CreatedAt)
}

func TestSnapshotRepo_ListNewestFirstWithLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_s2")

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i, status := range []string{"BUILDING", "READY", "ERROR"} {
		require.NoError(t, repo.Insert(ctx, model.StatusSnapshot{
			ProjectID: project.ID,
			Source:    model.SourceVercelProdDeployment,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	snapshots, err := repo.ListByProject(ctx, project.ID, 2)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "ERROR", snapshots[0].Status)
	assert.Equal(t, "READY", snapshots[1].Status)
}

func TestSnapshotRepo_DuplicatesAreKept(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_s3")

	// Redelivered webhooks append duplicate snapshots; the log is not deduplicated.
	snap := model.StatusSnapshot{
		ProjectID:  project.ID,
		Source:     model.SourceVercelWebhookPrefix + "deployment.ready",
		Status:     "READY",
		ExternalID: "dpl_dup",
		CreatedAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Insert(ctx, snap))
	require.NoError(t, repo.Insert(ctx, snap))

	snapshots, err := repo.ListByProject(ctx, project.ID, 0)
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
}

func TestSnapshotRepo_DefaultsCreatedAtToNow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepo(db)
	ctx := context.Background()

	project := insertTestProject(t, db, "site", "prj_s4")

	require.NoError(t, repo.Insert(ctx, model.StatusSnapshot{
		ProjectID: project.ID,
		Source:    model.SourceGitHubCIPrefix + "main",
		Status:    "success",
	}))

	snapshots, err := repo.ListByProject(ctx, project.ID, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.WithinDuration(t, time.Now().UTC(), snapshots[0].CreatedAt, 5*time.Second)
}
