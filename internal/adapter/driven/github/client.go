// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
// Both fetch methods are best-effort: request failures are logged and
// reported as nil, nil so the sync worker's per-project error counting stays
// in one place. There are no retries.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// GetRepoDetails returns repository metadata for owner/repo, notably the
// default branch. Returns nil, nil on any API failure; 404 is logged at
// debug, everything else at warn.
func (c *Client) GetRepoDetails(ctx context.Context, owner, repo string) (*model.RepoDetails, error) {
	repository, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		logBestEffortFailure("repo details", owner, repo, resp, err)
		return nil, nil
	}

	logRateLimit(resp, owner+"/"+repo, 1)

	return &model.RepoDetails{
		FullName:      repository.GetFullName(),
		DefaultBranch: repository.GetDefaultBranch(),
	}, nil
}

// GetLatestDefaultBranchRun returns the most recent workflow run on the given
// branch, or nil, nil when the branch has never run a workflow. Request
// failures are also reported as nil, nil after logging.
func (c *Client) GetLatestDefaultBranchRun(ctx context.Context, owner, repo, branch string) (*model.WorkflowRun, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Branch:      branch,
		ListOptions: gh.ListOptions{PerPage: 1},
	}

	runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	if err != nil {
		logBestEffortFailure("workflow runs", owner, repo, resp, err)
		return nil, nil
	}

	logRateLimit(resp, owner+"/"+repo+"/runs", len(runs.WorkflowRuns))

	if len(runs.WorkflowRuns) == 0 {
		return nil, nil
	}

	return mapWorkflowRun(runs.WorkflowRuns[0]), nil
}

// mapWorkflowRun converts a go-github WorkflowRun to its domain model type.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapWorkflowRun(run *gh.WorkflowRun) *model.WorkflowRun {
	return &model.WorkflowRun{
		ID:         run.GetID(),
		RunNumber:  run.GetRunNumber(),
		Name:       run.GetName(),
		Branch:     run.GetHeadBranch(),
		HeadSHA:    run.GetHeadSHA(),
		Actor:      run.GetActor().GetLogin(),
		Status:     run.GetStatus(),
		Conclusion: run.GetConclusion(),
		HTMLURL:    run.GetHTMLURL(),
		CreatedAt:  run.GetCreatedAt().Time,
	}
}

// logBestEffortFailure records a swallowed fetch failure. Missing repos (404)
// are routine -- a project's GitHub link may point at a renamed or private
// repo -- so they log at debug rather than warn.
func logBestEffortFailure(what, owner, repo string, resp *gh.Response, err error) {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		slog.Debug("github fetch returned 404",
			"what", what,
			"repo", owner+"/"+repo,
		)
		return
	}

	slog.Warn("github fetch failed",
		"what", what,
		"repo", owner+"/"+repo,
		"error", err,
	)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
