package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"directory/internal/adapters/storage"
	domain "directory/internal/domain/settings"
)

// Setting keys.
const (
	keyFont     = "font"
	keyFontSize = "font_size"
	keyTheme    = "theme"
	keyRevision = "revision"
)

// SQLiteStore implements the settings Store as a key/value table.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new settings store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the stored settings with per-key fallback to defaults.
// PRE: none
// POST: Returned settings always validate
func (s *SQLiteStore) Load(ctx context.Context) (domain.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM setting`)
	if err != nil {
		return domain.Defaults(), fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.Defaults(), fmt.Errorf("scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return domain.Defaults(), fmt.Errorf("read settings: %w", err)
	}
	return decode(values), nil
}

// decode maps raw key/value pairs onto settings, replacing invalid entries with defaults.
func decode(values map[string]string) domain.Settings {
	out := domain.Defaults()
	if v, ok := values[keyFont]; ok {
		out.Font = v
	}
	if v, ok := values[keyTheme]; ok {
		out.Theme = v
	}
	if v, ok := values[keyFontSize]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.FontSize = n
		} else {
			slog.Warn("setting_corrupt", "key", keyFontSize, "value", v)
		}
	}
	if v, ok := values[keyRevision]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.Revision = n
		} else {
			slog.Warn("setting_corrupt", "key", keyRevision, "value", v)
		}
	}
	sanitized := out.Sanitize()
	if sanitized != out {
		slog.Warn("setting_out_of_range", "stored", out, "using", sanitized)
	}
	return sanitized
}

// Save persists every field of st in one transaction.
// PRE: st validates
// POST: All keys written, or none on error
func (s *SQLiteStore) Save(ctx context.Context, st domain.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeAll(ctx, tx, st); err != nil {
		return err
	}
	return tx.Commit()
}

// BumpRevision increments the stored revision counter.
// PRE: none
// POST: Returns the settings as stored after the increment
func (s *SQLiteStore) BumpRevision(ctx context.Context) (domain.Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	current, err := loadTx(ctx, tx)
	if err != nil {
		return domain.Settings{}, err
	}
	next := current.Bumped()
	if err := writeAll(ctx, tx, next); err != nil {
		return domain.Settings{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Settings{}, fmt.Errorf("commit revision: %w", err)
	}
	return next, nil
}

func loadTx(ctx context.Context, tx *sql.Tx) (domain.Settings, error) {
	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM setting`)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()
	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, err
	}
	return decode(values), nil
}

func writeAll(ctx context.Context, tx *sql.Tx, st domain.Settings) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, kv := range [][2]string{
		{keyFont, st.Font},
		{keyFontSize, strconv.Itoa(st.FontSize)},
		{keyTheme, st.Theme},
		{keyRevision, strconv.Itoa(st.Revision)},
	} {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO setting (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			kv[0], kv[1], now)
		if err != nil {
			return fmt.Errorf("write setting %s: %w", kv[0], err)
		}
	}
	return nil
}
