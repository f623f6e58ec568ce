// Package audit stores the directory's change history in SQLite.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"directory/internal/adapters/storage"
	domain "directory/internal/domain/audit"
)

// Timestamps are UTC text with fixed-width nanoseconds so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const eventColumns = "id, timestamp, action, severity, actor_id, identity, row_index, revision, description, ip_address"

// SQLiteStore is the audit_event table.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore wraps db, which must already carry the audit_event schema.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts event.
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_event ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Timestamp.UTC().Format(timeLayout), string(event.Action), string(event.Severity),
		event.ActorID, event.Identity, event.RowIndex, event.Revision, event.Description, event.IPAddress)
	if err != nil {
		return fmt.Errorf("save audit event %s: %w", event.Action, err)
	}
	return nil
}

// List runs the filtered query.
// POST: events are ordered by timestamp descending
func (s *SQLiteStore) List(ctx context.Context, f Filter, limit int) ([]domain.Event, error) {
	where, args := f.clauses()
	query := "SELECT " + eventColumns + " FROM audit_event"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (f Filter) clauses() ([]string, []any) {
	var where []string
	var args []any
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(f.Action))
	}
	if f.Identity != "" {
		where = append(where, "identity = ?")
		args = append(args, f.Identity)
	}
	if !f.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	return where, args
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var (
		e  domain.Event
		ts string
	)
	if err := rows.Scan(&e.ID, &ts, &e.Action, &e.Severity, &e.ActorID, &e.Identity,
		&e.RowIndex, &e.Revision, &e.Description, &e.IPAddress); err != nil {
		return e, fmt.Errorf("scan audit event: %w", err)
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return e, fmt.Errorf("audit event %s timestamp %q: %w", e.ID, ts, err)
	}
	e.Timestamp = t
	return e, nil
}
