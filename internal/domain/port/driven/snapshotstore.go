package driven

import (
	"context"

	"github.com/panopticron/panopticron/internal/domain/model"
)

// SnapshotStore appends to and reads the immutable status snapshot log.
// The interface intentionally exposes no update or delete: snapshots are an
// append-only event record.
type SnapshotStore interface {
	// Insert appends one snapshot.
	Insert(ctx context.Context, s model.StatusSnapshot) error

	// ListByProject returns a project's snapshots ordered by creation time
	// descending, newest first, capped at limit (0 means no cap).
	ListByProject(ctx context.Context, projectID int64, limit int) ([]model.StatusSnapshot, error)
}
