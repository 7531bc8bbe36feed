package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestStore opens a write/read pool pair on a temp-file SQLite store,
// runs all pending migrations, and registers cleanup. Tests that don't care
// about the read/write split can use writeDB for everything.
func OpenTestStore(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "warden-test.sqlite")

	writeDB, readDB, err := OpenPair(path, 4)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return writeDB, readDB
}
