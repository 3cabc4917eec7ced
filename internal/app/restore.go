package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/perchlabs/perchup/internal/backup"
	"github.com/perchlabs/perchup/internal/fsutil"
	"github.com/perchlabs/perchup/internal/output"
	"github.com/perchlabs/perchup/internal/store"
	"github.com/spf13/cobra"
)

var restoreFlagYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-name | latest]",
	Short: "Restore Perch settings from a backup",
	Long: `Restore the Perch settings directory from a backup.

The backup's contents are copied over the settings directory. Files
that exist in the backup overwrite the live copies; files created since
the backup was taken are left alone. Afterwards the critical files are
verified so a restore that silently lost the agent database cannot
pass as a success.

Arguments:
  backup-name   A name from 'perchup backup --list' (or a full path)
  latest        The newest backup (the default)

Examples:
  # Restore the newest backup
  perchup restore latest

  # Restore a specific backup by name
  perchup restore backup-2026-08-20T14-02-11`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreFlagYes, "yes", false, "skip confirmation prompt")

	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
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

	target := "latest"
	if len(args) > 0 {
		target = args[0]
	}

	path, err := resolveBackupArg(backups, target)
	if err != nil {
		return err
	}
	if path == "" {
		// No backups exist yet. Not an error: there is nothing to restore.
		fmt.Println("No backups available.")
		fmt.Println()
		fmt.Println("Backups are created automatically before installs and updates,")
		fmt.Println("or by hand with 'perchup backup'.")
		return nil
	}

	name := filepath.Base(path)
	age := "unknown age"
	if created, ok := backup.Timestamp(path); ok {
		age = output.FormatRelativeTime(created)
	}

	fmt.Printf("This overwrites matching files in %s.\n", cfg.SettingsDir)
	if !restoreFlagYes && !confirm(fmt.Sprintf("Restore settings from %s (%s)?", name, age)) {
		fmt.Println("Restore cancelled.")
		return nil
	}

	spinner := output.NewSpinner("Restoring settings...")
	if err := backups.Restore(path); err != nil {
		spinner.Stop()
		recordEvent(st, store.KindRestore, "", store.OutcomeFailed, err.Error())

		var verr *backup.VerificationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ Settings are still missing %s after the restore.\n", strings.Join(verr.Missing, ", "))
			fmt.Println("  The backup itself may be incomplete; check 'perchup backup --list'.")
			return fmt.Errorf("restore verification failed")
		}
		return fmt.Errorf("restore failed: %w", err)
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ Settings restored from %s", name))

	recordEvent(st, store.KindRestore, "", store.OutcomeOK, path)

	fmt.Println("\nRestart Perch to pick up the restored settings.")
	return nil
}

// resolveBackupArg turns the command argument into a backup path. The
// keyword "latest" resolves to the newest backup and yields "" when
// none exist. A bare name is looked up under the backup root; explicit
// paths are taken as given. A named backup that does not exist is an
// error with pointers at the list.
func resolveBackupArg(backups *backup.Manager, arg string) (string, error) {
	if strings.EqualFold(arg, "latest") {
		return backups.Latest(), nil
	}

	path := arg
	if !filepath.IsAbs(path) && !fsutil.PathExists(path) {
		path = filepath.Join(backups.Config().BackupRoot, arg)
	}
	if !fsutil.PathExists(path) {
		return "", fmt.Errorf("backup not found: %s\n\nRun 'perchup backup --list' to see what is available", arg)
	}
	return path, nil
}
