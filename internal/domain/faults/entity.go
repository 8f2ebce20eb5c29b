package faults

import "time"

// Stages a fault can be recorded for.
const (
	StageAnalyze    = "analyze"
	StageNormalize  = "normalize"
	StagePersist    = "persist"
	StageBlobDelete = "blob-delete"
)

// Fault is a persisted record of a pipeline stage failure. Compensations in
// the pipeline are best-effort (an orphaned blob is accepted, a failed blob
// delete does not block record deletion), so faults keep those events
// auditable.
type Fault struct {
	ID        int64     `json:"id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
