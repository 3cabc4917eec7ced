package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/perchlabs/perchup/internal/backup"
	"github.com/perchlabs/perchup/internal/fsutil"
	"github.com/perchlabs/perchup/internal/output"
	"github.com/spf13/cobra"
)

var (
	backupFlagList   bool
	backupFlagReason string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up Perch settings",
	Long: `Take a backup of the Perch settings directory.

Backups are copies of ~/.config/perch stored under ~/.perchup/backups,
named by creation time. The oldest backups are rotated out so at most
the configured retention count is kept (default 5). Every backup is
verified to contain the agent database before it counts as complete.

Backups also happen automatically before installs and updates and, when
the watch daemon runs, whenever settings change on disk. This command
is for taking one by hand.

Examples:
  # Take a backup now
  perchup backup

  # Note why in the history
  perchup backup --reason "before importing agents"

  # Show existing backups
  perchup backup --list`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupFlagList, "list", false, "list existing backups")
	backupCmd.Flags().StringVar(&backupFlagReason, "reason", "manual", "reason recorded in the history")

	RootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	backups, err := newBackupManager(cfg, st)
	if err != nil {
		return err
	}

	if backupFlagList {
		return listBackups(backups)
	}

	outcome, err := backups.Create(backupFlagReason)
	if err != nil {
		var verr *backup.VerificationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ Backup incomplete: missing %v\n", verr.Missing)
			fmt.Printf("  The partial copy was kept at %s for inspection.\n", verr.Path)
			return fmt.Errorf("backup verification failed")
		}
		return fmt.Errorf("backup failed: %w", err)
	}

	if !outcome.Created {
		fmt.Printf("Nothing to back up: no Perch settings at %s.\n", cfg.SettingsDir)
		fmt.Println("Perch creates its settings on first launch.")
		return nil
	}

	size := fsutil.TreeSize(outcome.Path)
	fmt.Printf("✓ Backed up settings to %s (%s)\n", filepath.Base(outcome.Path), output.FormatSize(size))
	return nil
}

// listBackups renders the backups on disk, newest first.
func listBackups(backups *backup.Manager) error {
	paths := backups.List()

	infos := make([]output.BackupInfo, 0, len(paths))
	for _, path := range paths {
		created, _ := backup.Timestamp(path)
		infos = append(infos, output.BackupInfo{
			Name:      filepath.Base(path),
			CreatedAt: created,
			SizeBytes: fsutil.TreeSize(path),
			Verified:  backups.VerifyBackup(path),
		})
	}

	fmt.Print(output.RenderBackupTable(infos))
	if len(infos) > 0 {
		cfg := backups.Config()
		fmt.Printf("\n%d of %d backup slots used in %s\n", len(infos), cfg.Retention, cfg.BackupRoot)
		fmt.Println("Restore one with: perchup restore <name>")
	}
	return nil
}
