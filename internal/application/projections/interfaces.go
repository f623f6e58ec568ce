package projections

import (
	"directory/internal/application/directory"
)

// RosterReader is the read side of the directory store.
type RosterReader interface {
	Current() (directory.Snapshot, bool)
	IdentityField() string
}
