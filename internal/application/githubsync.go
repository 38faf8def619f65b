package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// WorkerNameGitHub is the worker_runs name of the GitHub sync worker.
const WorkerNameGitHub = "github-sync"

// GitHubSyncWorker refreshes the default-branch CI state of every stored
// project that has a GitHub repository on file. Unlike the Vercel worker it
// never discovers projects: its candidate set comes from the store, so it
// runs entirely against rows the Vercel worker (or an operator) created.
type GitHubSyncWorker struct {
	github    driven.GitHubClient
	projects  driven.ProjectStore
	snapshots driven.SnapshotStore
	priority  *PriorityService
	runs      *RunLogger
	now       func() time.Time
}

// NewGitHubSyncWorker creates a GitHubSyncWorker.
func NewGitHubSyncWorker(
	github driven.GitHubClient,
	projects driven.ProjectStore,
	snapshots driven.SnapshotStore,
	priority *PriorityService,
	runs *RunLogger,
) *GitHubSyncWorker {
	return &GitHubSyncWorker{
		github:    github,
		projects:  projects,
		snapshots: snapshots,
		priority:  priority,
		runs:      runs,
		now:       time.Now,
	}
}

// Run executes one full CI sync pass. Loading the candidate list is fatal;
// per-project failures are counted and logged without aborting the loop.
func (w *GitHubSyncWorker) Run(ctx context.Context) (model.SyncOutcome, error) {
	startedAt := w.now()
	runID := w.runs.StartRun(ctx, WorkerNameGitHub)

	var outcome model.SyncOutcome

	candidates, err := w.projects.ListWithGitHubRepo(ctx)
	if err != nil {
		w.runs.FinishRun(ctx, runID, WorkerNameGitHub, model.RunStatusFailure, startedAt,
			"Failed to load GitHub-linked projects",
			map[string]any{"error": err.Error()})
		return outcome, fmt.Errorf("listing github-linked projects: %w", err)
	}

	outcome.Candidates = len(candidates)
	projectErrors := make(map[string]string)

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}

		p := candidates[i]
		if err := w.syncProject(ctx, &p, &outcome); err != nil {
			slog.Error("github project sync failed", "project", p.Name, "error", err)
			projectErrors[p.Name] = err.Error()
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
	w.runs.FinishRun(ctx, runID, WorkerNameGitHub, status, startedAt, summary, details)

	slog.Info("github sync complete",
		"status", string(status),
		"candidates", outcome.Candidates,
		"succeeded", outcome.Successes,
		"snapshots", outcome.Snapshots,
		"errors", outcome.Errors,
		"duration", time.Since(startedAt).Round(time.Millisecond),
	)

	return outcome, nil
}

// syncProject refreshes one project's default branch and CI state.
func (w *GitHubSyncWorker) syncProject(ctx context.Context, p *model.Project, outcome *model.SyncOutcome) error {
	owner, repo, err := splitRepoURL(*p.GitHubRepoURL)
	if err != nil {
		w.markBranchUnknown(ctx, p)
		return err
	}

	branch := p.GitHubDefaultBranch
	if branch == "" {
		// Resolve the default branch once and persist it; later passes reuse
		// the stored value instead of re-fetching repo metadata.
		details, err := w.github.GetRepoDetails(ctx, owner, repo)
		if err == nil && details != nil {
			branch = details.DefaultBranch
		}
		if branch == "" {
			w.markBranchUnknown(ctx, p)
			return fmt.Errorf("default branch of %s/%s could not be determined", owner, repo)
		}
		p.GitHubDefaultBranch = branch
	}

	run, err := w.github.GetLatestDefaultBranchRun(ctx, owner, repo, branch)
	if err != nil {
		return fmt.Errorf("fetching workflow runs for %s/%s: %w", owner, repo, err)
	}

	oldStatus := p.GitHubCIStatus

	ciStatus := model.CIStatusNoRuns
	ciURL := ""
	if run != nil {
		ciStatus = deriveCIStatus(run)
		ciURL = run.HTMLURL
	}

	changed := p.GitHubCIStatus != ciStatus || p.GitHubCIURL != ciURL
	p.GitHubCIStatus = ciStatus
	p.GitHubCIURL = ciURL
	p.LastSyncedAt = w.now()

	reason := "GitHub sync refresh"
	if changed {
		reason = fmt.Sprintf("GitHub CI status changed: %s -> %s", displayStatus(string(oldStatus)), ciStatus)
	}

	if err := w.priority.Recompute(ctx, p, reason); err != nil {
		return err
	}

	if changed {
		outcome.Successes++
	}

	if run != nil && changed {
		w.appendRunSnapshot(ctx, p.ID, branch, ciStatus, run, outcome)
	}

	return nil
}

// markBranchUnknown records the unknown-branch sentinel so the project's
// priority reflects that its CI cannot be observed. The write is best-effort;
// the caller's error is the one that gets counted.
func (w *GitHubSyncWorker) markBranchUnknown(ctx context.Context, p *model.Project) {
	if p.GitHubCIStatus == model.CIStatusUnknownBranch {
		return
	}

	p.GitHubCIStatus = model.CIStatusUnknownBranch
	p.GitHubCIURL = ""

	if err := w.priority.Recompute(ctx, p, "GitHub default branch could not be determined"); err != nil {
		slog.Error("unknown-branch priority update failed", "project", p.Name, "error", err)
	}
}

// appendRunSnapshot records the observed workflow run in the snapshot log.
// Snapshot failures are logged only; they do not fail the project sync.
func (w *GitHubSyncWorker) appendRunSnapshot(ctx context.Context, projectID int64, branch string, status model.CIStatus, run *model.WorkflowRun, outcome *model.SyncOutcome) {
	snap := model.StatusSnapshot{
		ProjectID: projectID,
		Source:    model.SourceGitHubCIPrefix + branch,
		Status:    string(status),
		Details: map[string]any{
			"workflow":   run.Name,
			"run_number": run.RunNumber,
			"commit_sha": run.HeadSHA,
			"actor":      run.Actor,
			"conclusion": run.Conclusion,
		},
		ExternalID:  strconv.FormatInt(run.ID, 10),
		ExternalURL: run.HTMLURL,
		CreatedAt:   run.CreatedAt,
	}

	if err := w.snapshots.Insert(ctx, snap); err != nil {
		slog.Error("workflow snapshot insert failed", "project_id", projectID, "run", run.ID, "error", err)
		return
	}

	outcome.Snapshots++
}

// deriveCIStatus maps a workflow run onto the project CI status. The
// conclusion wins when the run has one; a run still executing has only a
// status, which always means some flavor of pending.
func deriveCIStatus(run *model.WorkflowRun) model.CIStatus {
	if run.Conclusion != "" {
		switch run.Conclusion {
		case "success":
			return model.CIStatusSuccess
		case "failure", "timed_out", "startup_failure":
			return model.CIStatusFailure
		default:
			return model.CIStatus(run.Conclusion)
		}
	}

	return model.CIStatusPending
}

// splitRepoURL extracts owner and repo from a GitHub repository URL such as
// https://github.com/owner/repo (with or without a trailing .git).
func splitRepoURL(repoURL string) (string, string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid repo URL %q: %w", repoURL, err)
	}

	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo URL %q: expected github.com/owner/repo", repoURL)
	}

	return parts[0], parts[1], nil
}
