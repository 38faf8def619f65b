// Package model defines the domain entities shared by all adapters and services.
package model

import "time"

// Project is the canonical record of one monitored repository/deployment
// target. A project may be linked to Vercel, to GitHub, or to both, but never
// to neither -- an unlinked project has no external identity and cannot be
// synced. Projects are created on first sync discovery and only ever updated
// afterwards; the sync pipeline never deletes them.
type Project struct {
	ID int64

	// External identities. VercelProjectID is unique when non-nil.
	VercelProjectID *string
	GitHubRepoURL   *string

	// Vercel-observed metadata.
	Name              string
	VercelOrgSlug     string
	VercelFramework   string
	VercelNodeVersion string

	// Latest production deployment, cached from sync and webhook updates.
	LatestProdDeploymentStatus string
	LatestProdDeploymentURL    string

	// GitHub-observed CI state for the default branch.
	GitHubDefaultBranch string
	GitHubCIStatus      CIStatus
	GitHubCIURL         string

	// Priority fields. Lower numbers mean higher urgency. PrioritySortKey is
	// derived: ManualPriorityOverride when non-nil, else CalculatedPriorityScore.
	CalculatedPriorityScore int
	ManualPriorityOverride  *int
	PrioritySortKey         int

	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastSyncedAt time.Time
}

// HasExternalIdentity reports whether the project is linked to at least one
// platform. Rows violating this are rejected by the store's CHECK constraint;
// the helper exists so services can fail earlier with a clearer error.
func (p *Project) HasExternalIdentity() bool {
	return p.VercelProjectID != nil || p.GitHubRepoURL != nil
}
