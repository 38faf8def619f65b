package model

import "time"

// VercelProject is the platform-side view of a Vercel project as returned by
// the projects-list endpoint, mapped into the fields the sync pipeline cares
// about. GitHubRepoURL is non-empty only when Vercel's own metadata links the
// project to a GitHub repository.
type VercelProject struct {
	ID            string
	Name          string
	AccountSlug   string
	Framework     string
	NodeVersion   string
	GitHubRepoURL string
	UpdatedAt     time.Time
}

// VercelDeployment is one deployment of a Vercel project.
type VercelDeployment struct {
	ID         string
	URL        string
	ReadyState string
	Target     string
	CommitSHA  string
	Branch     string
	CreatedAt  time.Time
}

// RepoDetails is the subset of GitHub repository metadata the GitHub sync
// worker needs.
type RepoDetails struct {
	FullName      string
	DefaultBranch string
}

// WorkflowRun is the latest GitHub Actions run observed on a branch.
type WorkflowRun struct {
	ID         int64
	RunNumber  int
	Name       string
	Branch     string
	HeadSHA    string
	Actor      string
	Status     string
	Conclusion string
	HTMLURL    string
	CreatedAt  time.Time
}
