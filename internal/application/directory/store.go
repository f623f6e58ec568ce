// Package directory holds the in-memory roster snapshot and mediates every
// read and write against the external roster source.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domain "directory/internal/domain/roster"
)

// Source is the subset of the roster source the store needs.
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
	WriteRow(ctx context.Context, rowIndex int, values []string) error
	AppendRow(ctx context.Context, values []string) error
}

// Snapshot is one successful load.
// INVARIANT: Roster is never mutated after it is published
type Snapshot struct {
	domain.Roster
	LoadedAt time.Time
}

// Store holds the last loaded roster.
// Readers take the published snapshot; Load swaps it wholesale.
type Store struct {
	source        Source
	identityField string
	now           func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	loaded   bool
}

// NewStore creates a store over source. identityField "" selects the clinician name.
// PRE: source is non-nil
// POST: Returns an empty store; call Load before reading
func NewStore(source Source, identityField string) *Store {
	if identityField == "" {
		identityField = domain.DefaultIdentityField
	}
	return &Store{source: source, identityField: identityField, now: time.Now}
}

// IdentityField returns the field used to locate records for write-back.
func (s *Store) IdentityField() string {
	return s.identityField
}

// Load replaces the snapshot with the current contents of the source.
// PRE: none
// POST: On success the new snapshot is published; on error the previous snapshot is kept
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.source.Rows(ctx)
	if err != nil {
		var dse *domain.DataSourceError
		if !errors.As(err, &dse) {
			err = &domain.DataSourceError{Op: "rows", Err: err}
		}
		return Snapshot{}, err
	}
	r, err := domain.Parse(rows)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Roster: r, LoadedAt: s.now()}

	s.mu.Lock()
	s.snapshot = snap
	s.loaded = true
	s.mu.Unlock()

	slog.Info("roster_loaded", "records", len(r.Records), "fields", len(r.Headers))
	return snap, nil
}

// Current returns the last published snapshot.
// POST: ok is false before the first successful Load
func (s *Store) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.loaded
}

// FieldIndex resolves name against the loaded headers.
func (s *Store) FieldIndex(name string) (int, error) {
	snap, ok := s.Current()
	if !ok {
		return -1, domain.ErrNotLoaded
	}
	return domain.FieldIndex(snap.Headers, name)
}

// UpdateOne overwrites the row of the first record whose identity field equals identity.
// PRE: a snapshot is loaded; rec is aligned to its headers
// POST: Returns the sheet row written. The snapshot is not reloaded; on error nothing was written
func (s *Store) UpdateOne(ctx context.Context, identity string, rec domain.Record) (int, error) {
	snap, ok := s.Current()
	if !ok {
		return 0, domain.ErrNotLoaded
	}
	if err := snap.Align(rec); err != nil {
		return 0, err
	}
	pos, err := snap.Find(s.identityField, identity)
	if err != nil {
		return 0, err
	}
	row := domain.RowIndex(pos)
	if err := s.source.WriteRow(ctx, row, rec); err != nil {
		return 0, wrapWrite("update", err)
	}
	slog.Info("roster_row_written", "row", row, "identity", identity)
	return row, nil
}

// AppendOne adds rec as a new last row. Duplicate identities are not checked.
// PRE: a snapshot is loaded; rec is aligned to its headers
// POST: The snapshot is not reloaded; on error nothing was written
func (s *Store) AppendOne(ctx context.Context, rec domain.Record) error {
	snap, ok := s.Current()
	if !ok {
		return domain.ErrNotLoaded
	}
	if err := snap.Align(rec); err != nil {
		return err
	}
	if err := s.source.AppendRow(ctx, rec); err != nil {
		return wrapWrite("append", err)
	}
	slog.Info("roster_row_appended", "identity", rec.Value(snap.Headers, s.identityField))
	return nil
}

func wrapWrite(op string, err error) error {
	var dse *domain.DataSourceError
	if errors.As(err, &dse) {
		return err
	}
	return &domain.DataSourceError{Op: op, Err: err}
}
