// Package testing provides shared test fixtures.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/teranos/htsmatch/db"
)

// CreateTestDB opens a migrated SQLite file under t.TempDir().
// Cleanup is registered with t.Cleanup.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenWithMigrations(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}
