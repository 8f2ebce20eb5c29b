package analyses

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a missing or empty upload payload.
	ErrInvalidInput = errors.New("invalid input: empty image payload")

	// ErrNotFound indicates an unknown analysis id.
	ErrNotFound = errors.New("analysis not found")

	// ErrEmptyModelResponse indicates the model answered with no content.
	ErrEmptyModelResponse = errors.New("model returned no content")

	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)

// StorageWriteError wraps an object-store upload failure.
type StorageWriteError struct {
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write failed: %v", e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageDeleteError wraps an object-store removal failure, including
// locators that cannot be mapped back to a bucket key. A blob that is
// already gone is not an error.
type StorageDeleteError struct {
	Locator string
	Err     error
}

func (e *StorageDeleteError) Error() string {
	return fmt.Sprintf("storage delete failed for %s: %v", e.Locator, e.Err)
}

func (e *StorageDeleteError) Unwrap() error { return e.Err }

// ModelUnavailableError wraps a transport or auth failure talking to the
// vision model.
type ModelUnavailableError struct {
	Err error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("vision model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// MalformedAnalysisError indicates the model text contained no parseable
// JSON object. Raw keeps the offending text for diagnostics.
type MalformedAnalysisError struct {
	Raw string
	Err error
}

func (e *MalformedAnalysisError) Error() string {
	return fmt.Sprintf("malformed analysis response: %v", e.Err)
}

func (e *MalformedAnalysisError) Unwrap() error { return e.Err }

// PersistenceError wraps a database failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
