package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrationManager_Up(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}

	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Running again is a no-op.
	if err := mgr.Up(); err != nil {
		t.Fatalf("Second Up failed: %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get migration version: %v", err)
	}
	if dirty {
		t.Error("Database is in dirty state after migrations")
	}
	if version != 2 {
		t.Errorf("Expected migration version 2, got %d", version)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Failed to close migration manager: %v", err)
	}
}

func TestMigrationManager_Down(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-down.db")

	if err := Migrate(dbPath); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Down(); err != nil {
		t.Fatalf("Failed to roll back: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('cards', 'summary_runs', 'deck_summaries')`,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected all tables dropped, %d remain", count)
	}
}

func TestMigrationManager_VersionBeforeMigrate(t *testing.T) {
	mgr, err := NewMigrationManager(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Version on fresh database failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("Expected version 0 clean, got %d dirty=%v", version, dirty)
	}
}
