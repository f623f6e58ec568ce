package storage

import (
	"database/sql"
	"slices"
	"testing"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func schemaObjects(t *testing.T, db *sql.DB, kind string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name", kind)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, n)
	}
	return names
}

// TestOpen_Schema verifies the settings and audit tables exist with their lookup indexes.
func TestOpen_Schema(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if got := schemaObjects(t, db, "table"); !slices.Equal(got, []string{"audit_event", "setting"}) {
		t.Errorf("tables=%v want [audit_event setting]", got)
	}
	if got := schemaObjects(t, db, "index"); !slices.Equal(got, []string{"idx_audit_event_identity", "idx_audit_event_timestamp"}) {
		t.Errorf("indexes=%v", got)
	}
	if _, err := db.Exec("INSERT INTO setting (key, value, updated_at) VALUES ('font', 'Arial', 'now')"); err != nil {
		t.Errorf("insert setting: %v", err)
	}
}

// TestInitDB_Rerun verifies applying the schema to an existing database keeps its rows.
func TestInitDB_Rerun(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("INSERT INTO setting (key, value, updated_at) VALUES ('revision', '7', 'now')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	var v string
	if err := db.QueryRow("SELECT value FROM setting WHERE key = 'revision'").Scan(&v); err != nil || v != "7" {
		t.Errorf("revision=%q err=%v want 7", v, err)
	}
}
