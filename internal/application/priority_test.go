package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panopticron/panopticron/internal/application"
	"github.com/panopticron/panopticron/internal/domain/model"
)

func TestComputeScore(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-1 * time.Hour)

	tests := []struct {
		name    string
		project model.Project
		want    int
	}{
		{
			name: "healthy project scores the base",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusSuccess,
				LastSyncedAt:               recent,
			},
			want: 10000,
		},
		{
			name: "production error is the heaviest penalty",
			project: model.Project{
				LatestProdDeploymentStatus: "ERROR",
				GitHubCIStatus:             model.CIStatusSuccess,
				LastSyncedAt:               recent,
			},
			want: 1000,
		},
		{
			name: "building deployment",
			project: model.Project{
				LatestProdDeploymentStatus: "BUILDING",
				GitHubCIStatus:             model.CIStatusSuccess,
				LastSyncedAt:               recent,
			},
			want: 7000,
		},
		{
			name: "queued weighs like building",
			project: model.Project{
				LatestProdDeploymentStatus: "QUEUED",
				LastSyncedAt:               recent,
			},
			want: 7000,
		},
		{
			name: "canceled deployment plus failing ci stack",
			project: model.Project{
				LatestProdDeploymentStatus: "CANCELED",
				GitHubCIStatus:             model.CIStatusFailure,
				LastSyncedAt:               recent,
			},
			want: 2000,
		},
		{
			name: "pending ci",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusPending,
				LastSyncedAt:               recent,
			},
			want: 8000,
		},
		{
			name: "unknown branch sentinel",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusUnknownBranch,
				LastSyncedAt:               recent,
			},
			want: 9500,
		},
		{
			name: "no runs sentinel",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusNoRuns,
				LastSyncedAt:               recent,
			},
			want: 9900,
		},
		{
			name: "staleness accrues beyond the one-day grace",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusSuccess,
				LastSyncedAt:               now.Add(-30 * time.Hour),
			},
			want: 9940,
		},
		{
			name: "staleness penalty is capped",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusSuccess,
				LastSyncedAt:               now.Add(-300 * time.Hour),
			},
			want: 8000,
		},
		{
			name: "never-synced project accrues no staleness",
			project: model.Project{
				LatestProdDeploymentStatus: "READY",
				GitHubCIStatus:             model.CIStatusSuccess,
			},
			want: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.ComputeScore(tt.project, now))
		})
	}
}

func TestRecompute_AppendsHistoryOnlyOnKeyChange(t *testing.T) {
	projects := newMockProjectStore()
	history := &mockHistoryStore{}
	svc := application.NewPriorityService(projects, history)
	ctx := context.Background()

	seeded := projects.seed(model.Project{
		VercelProjectID:            strPtr("prj_1"),
		Name:                       "site",
		LatestProdDeploymentStatus: "READY",
		GitHubCIStatus:             model.CIStatusSuccess,
		LastSyncedAt:               time.Now(),
	})

	p := seeded
	require.NoError(t, svc.Recompute(ctx, &p, "Vercel status changed: NONE -> READY"))

	assert.Equal(t, 10000, p.CalculatedPriorityScore)
	assert.Equal(t, 10000, p.PrioritySortKey)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "Vercel status changed: NONE -> READY", history.entries[0].Reason)
	assert.Equal(t, 10000, history.entries[0].FinalSortKey)
	assert.Nil(t, history.entries[0].ManualOverrideAtTime)

	// Same state again: the row is updated but no second history entry appears.
	require.NoError(t, svc.Recompute(ctx, &p, "Vercel sync refresh"))
	assert.Len(t, history.entries, 1)
	assert.Equal(t, 2, projects.updates)

	// A real state change appends exactly one more entry.
	p.LatestProdDeploymentStatus = "ERROR"
	require.NoError(t, svc.Recompute(ctx, &p, "Vercel status changed: READY -> ERROR"))
	require.Len(t, history.entries, 2)
	assert.Equal(t, 1000, history.entries[1].FinalSortKey)
}

func TestRecompute_ManualOverrideWinsSortKey(t *testing.T) {
	projects := newMockProjectStore()
	history := &mockHistoryStore{}
	svc := application.NewPriorityService(projects, history)
	ctx := context.Background()

	seeded := projects.seed(model.Project{
		VercelProjectID:            strPtr("prj_1"),
		Name:                       "site",
		LatestProdDeploymentStatus: "READY",
		GitHubCIStatus:             model.CIStatusSuccess,
		ManualPriorityOverride:     intPtr(50),
		LastSyncedAt:               time.Now(),
	})

	p := seeded
	require.NoError(t, svc.Recompute(ctx, &p, "Manual priority override set to 50"))

	assert.Equal(t, 10000, p.CalculatedPriorityScore, "score is still calculated")
	assert.Equal(t, 50, p.PrioritySortKey, "override is the sort key")

	require.Len(t, history.entries, 1)
	require.NotNil(t, history.entries[0].ManualOverrideAtTime)
	assert.Equal(t, 50, *history.entries[0].ManualOverrideAtTime)
	assert.Equal(t, 10000, history.entries[0].CalculatedScore)
}

func TestSetManualOverride_SetAndClear(t *testing.T) {
	projects := newMockProjectStore()
	history := &mockHistoryStore{}
	svc := application.NewPriorityService(projects, history)
	ctx := context.Background()

	seeded := projects.seed(model.Project{
		VercelProjectID:            strPtr("prj_1"),
		Name:                       "site",
		LatestProdDeploymentStatus: "READY",
		GitHubCIStatus:             model.CIStatusSuccess,
		CalculatedPriorityScore:    10000,
		PrioritySortKey:            10000,
		LastSyncedAt:               time.Now(),
	})

	updated, err := svc.SetManualOverride(ctx, seeded.ID, intPtr(1))
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 1, updated.PrioritySortKey)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "Manual priority override set to 1", history.entries[0].Reason)

	cleared, err := svc.SetManualOverride(ctx, seeded.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, cleared)
	assert.Nil(t, cleared.ManualPriorityOverride)
	assert.Equal(t, 10000, cleared.PrioritySortKey, "clearing returns the project to score ordering")
	require.Len(t, history.entries, 2)
	assert.Equal(t, "Manual priority override cleared", history.entries[1].Reason)
	assert.Nil(t, history.entries[1].ManualOverrideAtTime)
}

func TestSetManualOverride_UnknownProject(t *testing.T) {
	svc := application.NewPriorityService(newMockProjectStore(), &mockHistoryStore{})

	updated, err := svc.SetManualOverride(context.Background(), 404, intPtr(1))
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestRecompute_RapidChangesGetDistinctTimestamps(t *testing.T) {
	projects := newMockProjectStore()
	history := &mockHistoryStore{}
	svc := application.NewPriorityService(projects, history)
	ctx := context.Background()

	seeded := projects.seed(model.Project{
		VercelProjectID: strPtr("prj_1"),
		Name:            "site",
		LastSyncedAt:    time.Now(),
	})

	// Flip the deployment status back and forth as fast as the loop runs; the
	// history mock rejects duplicate (project, timestamp) pairs the way the
	// real unique index does.
	p := seeded
	statuses := []string{"ERROR", "READY"}
	for i := 0; i < 50; i++ {
		p.LatestProdDeploymentStatus = statuses[i%2]
		require.NoError(t, svc.Recompute(ctx, &p, "Vercel status changed"))
	}

	assert.Len(t, history.entries, 50)
}
