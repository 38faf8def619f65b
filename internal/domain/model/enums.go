package model

// DeploymentStatus is the readyState of a Vercel deployment.
type DeploymentStatus string

const (
	DeploymentQueued   DeploymentStatus = "QUEUED"
	DeploymentBuilding DeploymentStatus = "BUILDING"
	DeploymentReady    DeploymentStatus = "READY"
	DeploymentError    DeploymentStatus = "ERROR"
	DeploymentCanceled DeploymentStatus = "CANCELED"
)

// CIStatus is the derived state of a project's default-branch CI.
//
// The first group mirrors GitHub workflow run conclusions/statuses verbatim.
// The last two are local sentinels: CIStatusNoRuns means the default branch
// is known but has never run a workflow, CIStatusUnknownBranch means the
// default branch itself could not be determined.
type CIStatus string

const (
	CIStatusSuccess       CIStatus = "success"
	CIStatusFailure       CIStatus = "failure"
	CIStatusPending       CIStatus = "pending"
	CIStatusNoRuns        CIStatus = "no_runs"
	CIStatusUnknownBranch CIStatus = "unknown_branch"
)

// WorkerRunStatus is the lifecycle state of one sync worker invocation.
type WorkerRunStatus string

const (
	RunStatusStarted        WorkerRunStatus = "Started"
	RunStatusSuccess        WorkerRunStatus = "Success"
	RunStatusPartialSuccess WorkerRunStatus = "Partial Success"
	RunStatusFailure        WorkerRunStatus = "Failure"
	RunStatusNoActionNeeded WorkerRunStatus = "No Action Needed"
)

// Snapshot source tags. Webhook snapshots append the event type after the
// colon, e.g. "vercel-webhook:deployment.ready"; GitHub CI snapshots append
// the branch name after the dash, e.g. "github-ci-main".
const (
	SourceVercelProdDeployment = "vercel-prod-deployment"
	SourceVercelWebhookPrefix  = "vercel-webhook:"
	SourceGitHubCIPrefix       = "github-ci-"
)
