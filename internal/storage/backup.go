package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// BackupDirName is the default backup directory, next to the database.
const BackupDirName = "backups"

// BackupInfo describes one backup file.
type BackupInfo struct {
	Path     string
	Name     string
	Size     int64
	ModTime  time.Time
	Checksum string // hex BLAKE2b-256
}

// DefaultBackupDir returns the backups directory next to dbPath.
func DefaultBackupDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), BackupDirName)
}

// Backup writes a consistent copy of the open database into dir (or the
// default backup directory when dir is empty) and verifies it. VACUUM INTO
// does not need an exclusive lock, so summaries can keep running.
func (s *Service) Backup(ctx context.Context, dir string) (*BackupInfo, error) {
	if s.db.Path() == MemoryPath {
		return nil, fmt.Errorf("cannot back up an in-memory database")
	}
	if dir == "" {
		dir = DefaultBackupDir(s.db.Path())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405.000"))
	path := filepath.Join(dir, name)

	if _, err := s.db.Conn().ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}
	if err := VerifyBackup(ctx, path); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	return backupInfo(path)
}

// VerifyBackup checks that path is an intact deckstats database.
func VerifyBackup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("failed to check backup integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup is corrupt: %s", result)
	}

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('cards', 'summary_runs', 'deck_summaries')`).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect backup schema: %w", err)
	}
	if n != 3 {
		return fmt.Errorf("backup is missing deckstats tables")
	}
	return nil
}

// ListBackups returns the .db files in dir, newest first.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := backupInfo(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ModTime.After(backups[j].ModTime)
	})
	return backups, nil
}

// RestoreBackup replaces the database at dbPath with a verified backup.
// The current file is kept as <dbPath>.old.<timestamp>. The database must
// not be open.
func RestoreBackup(ctx context.Context, backupPath, dbPath string) error {
	if err := VerifyBackup(ctx, backupPath); err != nil {
		return fmt.Errorf("backup verification failed: %w", err)
	}

	tmp := dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to copy backup: %w", err)
	}

	if _, err := os.Stat(dbPath); err == nil {
		old := dbPath + ".old." + time.Now().Format("20060102_150405")
		if err := os.Rename(dbPath, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("failed to move current database aside: %w", err)
		}
		// WAL sidecars belong to the old file.
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(dbPath + suffix)
		}
	}

	if err := os.Rename(tmp, dbPath); err != nil {
		return fmt.Errorf("failed to replace database: %w", err)
	}
	return nil
}

func backupInfo(path string) (*BackupInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	sum, err := checksum(path)
	if err != nil {
		return nil, err
	}
	return &BackupInfo{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     st.Size(),
		ModTime:  st.ModTime(),
		Checksum: sum,
	}, nil
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
