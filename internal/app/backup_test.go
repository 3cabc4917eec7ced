package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBackupCommand(t *testing.T) {
	if backupCmd == nil {
		t.Fatal("backupCmd is nil")
	}

	if backupCmd.Use != "backup" {
		t.Errorf("backupCmd.Use = %q, want %q", backupCmd.Use, "backup")
	}

	if backupCmd.Short == "" {
		t.Error("backupCmd.Short is empty")
	}

	if backupCmd.RunE == nil {
		t.Error("backupCmd.RunE is nil")
	}
}

func TestBackupFlags(t *testing.T) {
	listFlag := backupCmd.Flags().Lookup("list")
	if listFlag == nil {
		t.Fatal("list flag not found")
	}
	if listFlag.DefValue != "false" {
		t.Errorf("list flag default = %q, want false", listFlag.DefValue)
	}

	reasonFlag := backupCmd.Flags().Lookup("reason")
	if reasonFlag == nil {
		t.Fatal("reason flag not found")
	}
	if reasonFlag.DefValue != "manual" {
		t.Errorf("reason flag default = %q, want manual", reasonFlag.DefValue)
	}
}

// A machine without Perch settings has nothing to protect; the command
// says so instead of failing.
func TestRunBackupNothingToBackUp(t *testing.T) {
	setupTestHome(t)

	out, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	})
	if err != nil {
		t.Fatalf("runBackup: %v", err)
	}

	if !strings.Contains(out, "Nothing to back up") {
		t.Errorf("expected friendly nothing-to-back-up message, got:\n%s", out)
	}
}

func TestRunBackupCreatesVerifiedBackup(t *testing.T) {
	home := setupTestHome(t)
	seedPerchSettings(t, home)

	out, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	})
	if err != nil {
		t.Fatalf("runBackup: %v", err)
	}
	if !strings.Contains(out, "✓ Backed up settings to backup-") {
		t.Errorf("expected success message, got:\n%s", out)
	}

	// Exactly one backup directory, containing the agent database.
	backupRoot := filepath.Join(home, ".perchup", "backups")
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		t.Fatalf("read backup root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d backups, want 1", len(entries))
	}

	db := filepath.Join(backupRoot, entries[0].Name(), "data", "agents.db")
	if _, err := os.Stat(db); err != nil {
		t.Errorf("backup is missing the agent database: %v", err)
	}
}

func TestRunBackupList(t *testing.T) {
	home := setupTestHome(t)
	seedPerchSettings(t, home)

	if _, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	}); err != nil {
		t.Fatalf("runBackup (create): %v", err)
	}

	oldList := backupFlagList
	backupFlagList = true
	defer func() { backupFlagList = oldList }()

	out, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	})
	if err != nil {
		t.Fatalf("runBackup (--list): %v", err)
	}

	if !strings.Contains(out, "backup-") {
		t.Errorf("list output should name the backup, got:\n%s", out)
	}
	if !strings.Contains(out, "✓ complete") {
		t.Errorf("list output should show integrity, got:\n%s", out)
	}
	if !strings.Contains(out, "perchup restore") {
		t.Errorf("list output should hint at restore, got:\n%s", out)
	}
}

func TestRunBackupListEmpty(t *testing.T) {
	setupTestHome(t)

	oldList := backupFlagList
	backupFlagList = true
	defer func() { backupFlagList = oldList }()

	out, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	})
	if err != nil {
		t.Fatalf("runBackup (--list): %v", err)
	}

	if !strings.Contains(out, "No backups found") {
		t.Errorf("expected empty-list message, got:\n%s", out)
	}
}
