package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ramonehamilton/deckstats/internal/models"
)

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "deckstats.db")

	svc, err := OpenService(dbPath)
	if err != nil {
		t.Fatalf("OpenService failed: %v", err)
	}
	cards := []models.CardRecord{{Name: "Forest", TypeLine: "Basic Land — Forest", Rarity: models.RarityCommon}}
	if err := svc.SaveCards(ctx, "blb", cards); err != nil {
		t.Fatalf("SaveCards failed: %v", err)
	}

	info, err := svc.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if filepath.Dir(info.Path) != DefaultBackupDir(dbPath) {
		t.Errorf("backup written to %s, want %s", info.Path, DefaultBackupDir(dbPath))
	}
	if len(info.Checksum) != 64 {
		t.Errorf("expected a 256-bit hex checksum, got %q", info.Checksum)
	}

	backups, err := ListBackups(DefaultBackupDir(dbPath))
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 1 || backups[0].Checksum != info.Checksum {
		t.Fatalf("unexpected backups: %+v", backups)
	}

	// Change the live database, then roll it back.
	if err := svc.Cards().DeleteSet(ctx, "blb"); err != nil {
		t.Fatalf("DeleteSet failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := RestoreBackup(ctx, info.Path, dbPath); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}

	restored, err := OpenService(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = restored.Close() }()

	got, err := restored.GetCardsBySet(ctx, "blb")
	if err != nil {
		t.Fatalf("GetCardsBySet failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Forest" {
		t.Errorf("expected restored card, got %+v", got)
	}
}

func TestVerifyBackup_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	if err := os.WriteFile(path, []byte("not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := VerifyBackup(context.Background(), path); err == nil {
		t.Error("expected verification error")
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}
