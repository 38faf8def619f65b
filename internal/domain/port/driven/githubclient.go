package driven

import (
	"context"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// GitHubClient fetches repository metadata and workflow run state from the
// GitHub REST API. Both methods share the best-effort contract: any request
// failure is logged and reported as nil, nil (404 at a lower severity than
// other errors), never as an error, so the sync loop's per-project error
// counting stays centralized in the worker.
type GitHubClient interface {
	// GetRepoDetails returns repository metadata, notably the default branch.
	GetRepoDetails(ctx context.Context, owner, repo string) (*model.RepoDetails, error)

	// GetLatestDefaultBranchRun returns the most recent workflow run on the
	// given branch, or nil, nil when the branch has never run a workflow.
	GetLatestDefaultBranchRun(ctx context.Context, owner, repo, branch string) (*model.WorkflowRun, error)
}
