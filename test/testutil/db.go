package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/xxxsen/docmind/internal/config"
	"github.com/xxxsen/docmind/internal/db"
)

// OpenTestDB opens the postgres test database, skipping when TEST_DB_HOST is
// unset.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     5432,
		User:     "docmind",
		Password: "docmind_pass",
		DBName:   "docmind_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn, config.DriverPostgres); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// OpenSQLiteDB opens a migrated sqlite database in a temp dir.
func OpenSQLiteDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "docmind.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.ApplyMigrations(conn, config.DriverSQLite); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}
