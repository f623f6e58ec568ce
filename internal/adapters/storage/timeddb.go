package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"directory/internal/adapters/http/perf"
)

// SQLDB is what the settings and audit stores need from a database.
// *sql.DB and *TimedDB both satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

// TimedDB times each call against the local database. Calls at or above the
// threshold log slow_query; every call is recorded in the collector when one is set.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	threshold float64
}

// NewTimedDB wraps db. slowMs <= 0 selects DefaultSlowQueryMs; collector may be nil.
func NewTimedDB(db *sql.DB, collector *perf.Collector, slowMs int) *TimedDB {
	if slowMs <= 0 {
		slowMs = DefaultSlowQueryMs
	}
	return &TimedDB{db: db, collector: collector, threshold: float64(slowMs)}
}

// statement returns the leading SQL keyword, e.g. "SELECT".
func statement(query string) string {
	query = strings.TrimSpace(query)
	if i := strings.IndexAny(query, " \t\n"); i > 0 {
		query = query[:i]
	}
	return strings.ToUpper(query)
}

func (t *TimedDB) observe(op, query string, start time.Time, err error) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	failed := err != nil && !errors.Is(err, sql.ErrNoRows)

	attrs := []any{"op", op, "duration_ms", durationMs}
	if query != "" {
		attrs = append(attrs, "stmt", statement(query))
	}
	if failed {
		attrs = append(attrs, "error", err.Error())
	}
	if durationMs >= t.threshold {
		slog.Warn("slow_query", attrs...)
	} else {
		slog.Debug("query", attrs...)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       "sqlite." + op,
			DurationMs: durationMs,
			Failed:     failed,
			Timestamp:  start,
		})
	}
}

func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.observe("ExecContext", query, start, err)
	return result, err
}

func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe("QueryContext", query, start, err)
	return rows, err
}

// QueryRowContext records the call without an error; *sql.Row defers it to Scan.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe("QueryRowContext", query, start, row.Err())
	return row
}

func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe("BeginTx", "", start, err)
	return tx, err
}

// Close closes the underlying database.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection, used by the health check.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}
