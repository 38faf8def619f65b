package driven

import (
	"context"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// VercelClient fetches project and deployment data from the Vercel REST API.
// The client performs no retries; failure semantics differ per method and are
// part of the contract.
type VercelClient interface {
	// ListProjects pages through the full project list. Any page error fails
	// the whole call -- Vercel is the source of project discovery and a
	// partial list would silently orphan projects.
	ListProjects(ctx context.Context) ([]model.VercelProject, error)

	// GetLatestProductionDeployment returns the single most recent
	// production-target deployment, or nil, nil when none exists. This fetch
	// is best-effort: request failures are also reported as nil, nil after
	// logging, never as an error, so per-project sync loops are not aborted.
	GetLatestProductionDeployment(ctx context.Context, projectID string) (*model.VercelDeployment, error)
}
