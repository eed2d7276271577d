package result

import "time"

// Bundle is a stored snapshot of a full result set, kept so the complete data
// can be exported after only a preview was shown inline. Rows are never
// mutated after the snapshot is taken.
type Bundle struct {
	ID        string
	Query     string
	Rows      []Row
	CreatedAt time.Time
}
