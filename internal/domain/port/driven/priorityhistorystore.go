package driven

import (
	"context"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// PriorityHistoryStore appends to and reads the immutable priority audit
// trail. Only the priority service calls Insert; no update or delete exists.
type PriorityHistoryStore interface {
	// Insert appends one history entry. (ProjectID, RecordedAt) is unique.
	Insert(ctx context.Context, e model.PriorityHistoryEntry) error

	// ListByProject returns a project's history ordered by recorded_at
	// descending, capped at limit (0 means no cap).
	ListByProject(ctx context.Context, projectID int64, limit int) ([]model.PriorityHistoryEntry, error)
}
