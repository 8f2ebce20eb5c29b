package analyses

import "context"

// Repository port (interface for record persistence)
type Repository interface {
	// Create persists the record and assigns its id.
	Create(ctx context.Context, a *Analysis) error
	// ListAll returns every record, most recent first.
	ListAll(ctx context.Context) ([]*Analysis, error)
	Get(ctx context.Context, id int64) (*Analysis, error)
	Delete(ctx context.Context, id int64) error
}

// BlobStore port (interface for durable image storage)
type BlobStore interface {
	// Put writes the bytes to a new uniquely named object and returns its
	// locator, a URL resolvable by the vision model.
	Put(ctx context.Context, data []byte, contentType, ext string) (string, error)
	// Remove deletes the object behind a locator. Removing an already
	// absent object succeeds.
	Remove(ctx context.Context, locator string) error
}

// Vision port (interface for the external multimodal model)
type Vision interface {
	// Analyze sends one request for imageRef (object URL or data: URL)
	// and returns the raw model text.
	Analyze(ctx context.Context, imageRef string) (string, error)
}
