package analyses

import "time"

// DetectedObject is one object the model claims to see. Confidence is raw
// model output and is not range checked here; display code must clamp.
type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Fields is the normalized, pre-persistence shape of an analysis. Slice
// fields are never nil once produced by Normalize.
type Fields struct {
	Description    *string          `json:"description"`
	Objects        []DetectedObject `json:"objects"`
	Text           []string         `json:"text"`
	DominantColors []string         `json:"dominant_colors"`
	Category       *string          `json:"category"`
}

// Analysis is the persisted record. Records are write-once: created at the
// end of a successful ingestion, never mutated, removed only by an explicit
// delete.
type Analysis struct {
	ID             int64            `json:"id"`
	Description    *string          `json:"description"`
	Objects        []DetectedObject `json:"objects"`
	Text           []string         `json:"text"`
	DominantColors []string         `json:"dominant_colors"`
	Category       *string          `json:"category"`
	ImageURL       string           `json:"image_url,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
