package audit

import (
	"context"
	"time"

	domain "directory/internal/domain/audit"
)

// Store persists the directory's change history.
type Store interface {
	// Save appends one event.
	// PRE: event.ID is unique
	Save(ctx context.Context, event domain.Event) error

	// List returns at most limit events matching f, newest first.
	// PRE: limit > 0
	List(ctx context.Context, f Filter, limit int) ([]domain.Event, error)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Action   domain.Action
	Identity string
	Since    time.Time
}

var _ Store = (*SQLiteStore)(nil)
