package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
// It has a single connection, so tests that need parallel transactions
// should use NewTestFileDB.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	return newTestDB(t, memoryPath)
}

// NewTestFileDB creates a schema-initialized database file in a temporary
// directory. Its pool hands out separate connections.
func NewTestFileDB(t testing.TB) *sql.DB {
	t.Helper()
	return newTestDB(t, filepath.Join(t.TempDir(), "storekeeper.sqlite3"))
}

func newTestDB(t testing.TB, path string) *sql.DB {
	t.Helper()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database %s: %v", path, err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("creating test database schema: %v", err)
	}
	return db
}
