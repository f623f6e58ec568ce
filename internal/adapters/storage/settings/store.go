package settings

import (
	"context"

	"directory/internal/adapters/storage"
	domain "directory/internal/domain/settings"
)

// Store defines the interface for local settings persistence.
type Store interface {
	// Load returns the stored settings.
	// PRE: none
	// POST: Missing or unparsable keys carry their defaults; error only when the table cannot be read
	Load(ctx context.Context) (domain.Settings, error)

	// Save persists every field of s atomically.
	// PRE: s validates
	// POST: All keys written, or none on error
	Save(ctx context.Context, s domain.Settings) error

	// BumpRevision increments the revision counter and returns the new settings.
	// PRE: none
	// POST: Stored revision is one higher than before on success, unchanged on error
	BumpRevision(ctx context.Context) (domain.Settings, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// SQLDB defines the database interface needed by the store.
type SQLDB interface {
	storage.SQLDB
}
