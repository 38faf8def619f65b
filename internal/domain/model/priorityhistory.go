package model

import "time"

// PriorityHistoryEntry is one row of the append-only audit trail of priority
// recalculations. Exactly one entry is appended whenever the recomputed
// priority_sort_key differs from the stored one. Entries are written only by
// the priority service, never directly by other code.
type PriorityHistoryEntry struct {
	ID        int64
	ProjectID int64

	// RecordedAt has sub-second resolution; (ProjectID, RecordedAt) is unique
	// so rapid successive recomputations within the same wall-clock second
	// still insert distinct rows.
	RecordedAt time.Time

	FinalSortKey         int
	CalculatedScore      int
	ManualOverrideAtTime *int
	Reason               string
}
