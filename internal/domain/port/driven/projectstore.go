// Package driven defines the port interfaces implemented by driven adapters
// (datastore repositories and platform API clients).
package driven

import (
	"context"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// ProjectStore persists canonical project records. The sync pipeline only
// ever inserts and updates projects; there is deliberately no delete method.
type ProjectStore interface {
	// Insert creates a new project and returns it with its assigned ID.
	Insert(ctx context.Context, p model.Project) (*model.Project, error)

	// Update rewrites the mutable columns of an existing project by ID.
	Update(ctx context.Context, p model.Project) error

	// GetByID returns the project with the given internal ID, or nil, nil if
	// it does not exist.
	GetByID(ctx context.Context, id int64) (*model.Project, error)

	// GetByVercelID returns the project linked to the given Vercel project id,
	// or nil, nil if none is.
	GetByVercelID(ctx context.Context, vercelProjectID string) (*model.Project, error)

	// ListAll returns every project ordered by priority_sort_key ascending,
	// i.e. most urgent first.
	ListAll(ctx context.Context) ([]model.Project, error)

	// ListWithGitHubRepo returns the projects that have a non-empty GitHub
	// repo URL on file, the candidate set of the GitHub sync worker.
	ListWithGitHubRepo(ctx context.Context) ([]model.Project, error)
}
