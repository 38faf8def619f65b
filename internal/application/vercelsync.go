package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// WorkerNameVercel is the worker_runs name of the Vercel sync worker.
const WorkerNameVercel = "vercel-sync"

// VercelSyncWorker reconciles the stored project list against the live Vercel
// account: unseen Vercel projects are inserted, known ones updated, and the
// latest production deployment of each is cached and snapshotted. Projects
// are never deleted; a project that disappears from Vercel simply stops
// being refreshed.
type VercelSyncWorker struct {
	vercel    driven.VercelClient
	projects  driven.ProjectStore
	snapshots driven.SnapshotStore
	priority  *PriorityService
	runs      *RunLogger
	now       func() time.Time
}

// NewVercelSyncWorker creates a VercelSyncWorker.
func NewVercelSyncWorker(
	vercel driven.VercelClient,
	projects driven.ProjectStore,
	snapshots driven.SnapshotStore,
	priority *PriorityService,
	runs *RunLogger,
) *VercelSyncWorker {
	return &VercelSyncWorker{
		vercel:    vercel,
		projects:  projects,
		snapshots: snapshots,
		priority:  priority,
		runs:      runs,
		now:       time.Now,
	}
}

// Run executes one full sync pass. The project listing is fatal; everything
// after it is per-project, with failures counted and logged but never
// aborting the loop. The returned outcome carries the counters behind the
// recorded run status.
func (w *VercelSyncWorker) Run(ctx context.Context) (model.SyncOutcome, error) {
	startedAt := w.now()
	runID := w.runs.StartRun(ctx, WorkerNameVercel)

	var outcome model.SyncOutcome

	live, err := w.vercel.ListProjects(ctx)
	if err != nil {
		w.runs.FinishRun(ctx, runID, WorkerNameVercel, model.RunStatusFailure, startedAt,
			"Failed to list Vercel projects",
			map[string]any{"error": err.Error()})
		return outcome, fmt.Errorf("listing vercel projects: %w", err)
	}

	outcome.Candidates = len(live)
	projectErrors := make(map[string]string)

	for _, vp := range live {
		if ctx.Err() != nil {
			break
		}

		if err := w.syncProject(ctx, vp, &outcome); err != nil {
			slog.Error("vercel project sync failed", "project", vp.Name, "vercel_id", vp.ID, "error", err)
			projectErrors[vp.Name] = err.Error()
			outcome.Errors++
		}
	}

	status := outcome.Classify()
	summary := fmt.Sprintf("Processed: %d, Succeeded: %d, Snapshots: %d, Errors: %d",
		outcome.Candidates, outcome.Successes, outcome.Snapshots, outcome.Errors)

	var details map[string]any
	if len(projectErrors) > 0 {
		details = map[string]any{"projects": projectErrors}
	}
	w.runs.FinishRun(ctx, runID, WorkerNameVercel, status, startedAt, summary, details)

	slog.Info("vercel sync complete",
		"status", string(status),
		"candidates", outcome.Candidates,
		"succeeded", outcome.Successes,
		"snapshots", outcome.Snapshots,
		"errors", outcome.Errors,
		"duration", time.Since(startedAt).Round(time.Millisecond),
	)

	return outcome, nil
}

// syncProject reconciles one live Vercel project into the store.
func (w *VercelSyncWorker) syncProject(ctx context.Context, vp model.VercelProject, outcome *model.SyncOutcome) error {
	dep, err := w.vercel.GetLatestProductionDeployment(ctx, vp.ID)
	if err != nil {
		// Transport-level fetch failure: this project is not touched at all
		// this pass, the remaining projects proceed.
		return fmt.Errorf("fetching latest deployment: %w", err)
	}

	stored, err := w.projects.GetByVercelID(ctx, vp.ID)
	if err != nil {
		return fmt.Errorf("looking up project: %w", err)
	}

	if stored == nil {
		return w.insertProject(ctx, vp, dep, outcome)
	}

	return w.updateProject(ctx, vp, dep, stored, outcome)
}

// insertProject creates the project row for a Vercel project seen for the
// first time.
func (w *VercelSyncWorker) insertProject(ctx context.Context, vp model.VercelProject, dep *model.VercelDeployment, outcome *model.SyncOutcome) error {
	vercelID := vp.ID
	p := model.Project{
		VercelProjectID:   &vercelID,
		Name:              vp.Name,
		VercelOrgSlug:     vp.AccountSlug,
		VercelFramework:   vp.Framework,
		VercelNodeVersion: vp.NodeVersion,
		LastSyncedAt:      w.now(),
	}
	if vp.GitHubRepoURL != "" {
		repoURL := vp.GitHubRepoURL
		p.GitHubRepoURL = &repoURL
	}
	if dep != nil {
		p.LatestProdDeploymentStatus = dep.ReadyState
		p.LatestProdDeploymentURL = dep.URL
	}

	inserted, err := w.projects.Insert(ctx, p)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}

	if err := w.priority.Recompute(ctx, inserted, "Project discovered via Vercel sync"); err != nil {
		return err
	}

	outcome.Successes++
	slog.Info("vercel project discovered", "project", vp.Name, "vercel_id", vp.ID)

	if dep != nil {
		w.appendDeploymentSnapshot(ctx, inserted.ID, dep, outcome)
	}

	return nil
}

// updateProject refreshes a known project from the live Vercel metadata and
// its latest production deployment. A stored GitHub repo URL is never
// overwritten with an empty one: losing the link would silently drop the
// project from the GitHub sync candidate set.
func (w *VercelSyncWorker) updateProject(ctx context.Context, vp model.VercelProject, dep *model.VercelDeployment, stored *model.Project, outcome *model.SyncOutcome) error {
	oldStatus := stored.LatestProdDeploymentStatus

	metaChanged := stored.Name != vp.Name ||
		stored.VercelOrgSlug != vp.AccountSlug ||
		stored.VercelFramework != vp.Framework ||
		stored.VercelNodeVersion != vp.NodeVersion

	stored.Name = vp.Name
	stored.VercelOrgSlug = vp.AccountSlug
	stored.VercelFramework = vp.Framework
	stored.VercelNodeVersion = vp.NodeVersion

	if vp.GitHubRepoURL != "" && (stored.GitHubRepoURL == nil || *stored.GitHubRepoURL != vp.GitHubRepoURL) {
		repoURL := vp.GitHubRepoURL
		stored.GitHubRepoURL = &repoURL
		metaChanged = true
	}

	statusChanged := false
	if dep != nil {
		statusChanged = stored.LatestProdDeploymentStatus != dep.ReadyState ||
			stored.LatestProdDeploymentURL != dep.URL
		stored.LatestProdDeploymentStatus = dep.ReadyState
		stored.LatestProdDeploymentURL = dep.URL
	}

	stored.LastSyncedAt = w.now()

	reason := "Vercel sync refresh"
	if statusChanged {
		reason = fmt.Sprintf("Vercel status changed: %s -> %s", displayStatus(oldStatus), dep.ReadyState)
	}

	if err := w.priority.Recompute(ctx, stored, reason); err != nil {
		return err
	}

	if metaChanged || statusChanged {
		outcome.Successes++
	}

	if dep != nil && statusChanged {
		w.appendDeploymentSnapshot(ctx, stored.ID, dep, outcome)
	}

	return nil
}

// appendDeploymentSnapshot records the observed deployment in the snapshot
// log. Snapshot failures are logged only; they do not fail the project sync.
func (w *VercelSyncWorker) appendDeploymentSnapshot(ctx context.Context, projectID int64, dep *model.VercelDeployment, outcome *model.SyncOutcome) {
	snap := model.StatusSnapshot{
		ProjectID: projectID,
		Source:    model.SourceVercelProdDeployment,
		Status:    dep.ReadyState,
		Details: map[string]any{
			"deployment_id": dep.ID,
			"url":           dep.URL,
			"commit_sha":    dep.CommitSHA,
			"branch":        dep.Branch,
			"target":        dep.Target,
		},
		ExternalID:  dep.ID,
		ExternalURL: dep.URL,
		CreatedAt:   dep.CreatedAt,
	}

	if err := w.snapshots.Insert(ctx, snap); err != nil {
		slog.Error("deployment snapshot insert failed", "project_id", projectID, "deployment", dep.ID, "error", err)
		return
	}

	outcome.Snapshots++
}

// displayStatus renders an empty cached status readably in reason strings.
func displayStatus(s string) string {
	if s == "" {
		return "NONE"
	}
	return s
}
