package storage

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}

	if config.MaxOpenConns != 4 {
		t.Errorf("expected MaxOpenConns 4, got %d", config.MaxOpenConns)
	}

	if config.MaxIdleConns != 2 {
		t.Errorf("expected MaxIdleConns 2, got %d", config.MaxIdleConns)
	}

	if config.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("expected ConnMaxLifetime 5m, got %v", config.ConnMaxLifetime)
	}

	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}

	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}

	if !config.AutoMigrate {
		t.Error("expected AutoMigrate to default to true")
	}
}

func TestConfigDSN(t *testing.T) {
	dsn := DefaultConfig("/tmp/x.db").dsn()
	if !strings.HasPrefix(dsn, "file:/tmp/x.db?") {
		t.Errorf("unexpected dsn prefix: %s", dsn)
	}
	for _, want := range []string{"busy_timeout%285000%29", "foreign_keys%281%29", "journal_mode%28WAL%29"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}

	memory := DefaultConfig(MemoryPath).dsn()
	if strings.Contains(memory, "journal_mode") {
		t.Errorf("memory dsn should not set journal_mode: %s", memory)
	}
}

func TestOpen(t *testing.T) {
	config := DefaultConfig(MemoryPath)
	config.AutoMigrate = false
	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("failed to ping database: %v", err)
	}

	if db.Conn() == nil {
		t.Error("expected non-nil connection")
	}
	if db.Path() != MemoryPath {
		t.Errorf("expected path %q, got %q", MemoryPath, db.Path())
	}
}

func TestOpenWithNilConfig(t *testing.T) {
	_, err := Open(nil)
	if err == nil {
		t.Error("expected error when opening with nil config")
	}
}

func TestOpenMemoryRejectsAutoMigrate(t *testing.T) {
	_, err := Open(DefaultConfig(MemoryPath))
	if err == nil {
		t.Error("expected error when auto-migrating an in-memory database")
	}
}

func TestOpenAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deckstats.db")

	db, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"cards", "summary_runs", "deck_summaries"} {
		var name string
		err := db.Conn().QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}

	var fk int
	if err := db.Conn().QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("failed to read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign keys enabled, got %d", fk)
	}
}

func TestOpenTwiceIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckstats.db")

	for i := 0; i < 2; i++ {
		db, err := Open(DefaultConfig(path))
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("close %d failed: %v", i, err)
		}
	}
}
