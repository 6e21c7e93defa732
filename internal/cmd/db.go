package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckstats/internal/storage"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Back up and restore the card archive and run history",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a verified copy of the database",
	Args:  cobra.NoArgs,
	RunE:  runDBBackup,
}

var dbBackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List database backups",
	Args:  cobra.NoArgs,
	RunE:  runDBBackups,
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Replace the database with a backup",
	Long: `Replace the database with a verified backup. The current database is
kept next to it with an .old.<timestamp> suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: runDBRestore,
}

var backupDir string

func init() {
	dbBackupCmd.Flags().StringVar(&backupDir, "dir", "", "backup directory (default <database dir>/backups)")
	dbBackupsCmd.Flags().StringVar(&backupDir, "dir", "", "backup directory (default <database dir>/backups)")

	dbCmd.AddCommand(dbBackupCmd, dbBackupsCmd, dbRestoreCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := storage.OpenService(cfg.Data.Database)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	info, err := svc.Backup(cmd.Context(), backupDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%d bytes, blake2b %s)\n", info.Path, info.Size, info.Checksum[:16])
	return nil
}

func runDBBackups(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := backupDir
	if dir == "" {
		dir = storage.DefaultBackupDir(cfg.Data.Database)
	}

	backups, err := storage.ListBackups(dir)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(backups) == 0 {
		fmt.Fprintf(w, "No backups in %s\n", dir)
		return nil
	}
	for _, b := range backups {
		fmt.Fprintf(w, "%-32s %10d  %s  %s\n", b.Name, b.Size, b.ModTime.Format(time.DateTime), b.Checksum[:16])
	}
	return nil
}

func runDBRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := storage.RestoreBackup(cmd.Context(), args[0], cfg.Data.Database); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", cfg.Data.Database, args[0])
	return nil
}
