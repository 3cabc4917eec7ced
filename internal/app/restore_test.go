package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRestoreCommand(t *testing.T) {
	if restoreCmd == nil {
		t.Fatal("restoreCmd is nil")
	}

	if restoreCmd.Use != "restore [backup-name | latest]" {
		t.Errorf("restoreCmd.Use = %q, want %q", restoreCmd.Use, "restore [backup-name | latest]")
	}

	if restoreCmd.RunE == nil {
		t.Error("restoreCmd.RunE is nil")
	}

	if !strings.Contains(restoreCmd.Long, "latest") {
		t.Error("command should document the 'latest' keyword")
	}

	yesFlag := restoreCmd.Flags().Lookup("yes")
	if yesFlag == nil {
		t.Fatal("yes flag not found")
	}
	if yesFlag.DefValue != "false" {
		t.Errorf("yes flag default = %q, want false", yesFlag.DefValue)
	}
}

// TestRunRestoreLatestNoBackupsFriendlyMessage verifies that
// `perchup restore latest` with no backups prints guidance and returns
// nil rather than an error.
func TestRunRestoreLatestNoBackupsFriendlyMessage(t *testing.T) {
	setupTestHome(t)

	out, err := captureStdout(t, func() error {
		return runRestore(restoreCmd, []string{"latest"})
	})
	if err != nil {
		t.Errorf("expected runRestore to return nil when no backups, got: %v", err)
	}

	expectedPhrases := []string{
		"No backups available",
		"perchup backup",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(out, phrase) {
			t.Errorf("expected output to contain %q, got:\n%s", phrase, out)
		}
	}
}

func TestRunRestoreRoundTrip(t *testing.T) {
	home := setupTestHome(t)
	settings := seedPerchSettings(t, home)

	if _, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	}); err != nil {
		t.Fatalf("runBackup: %v", err)
	}

	// Simulate the damage a failed update could do.
	agentsDB := filepath.Join(settings, "data", "agents.db")
	if err := os.Remove(agentsDB); err != nil {
		t.Fatalf("remove agents.db: %v", err)
	}

	oldYes := restoreFlagYes
	restoreFlagYes = true
	defer func() { restoreFlagYes = oldYes }()

	out, err := captureStdout(t, func() error {
		return runRestore(restoreCmd, []string{"latest"})
	})
	if err != nil {
		t.Fatalf("runRestore: %v", err)
	}
	if !strings.Contains(out, "✓ Settings restored from backup-") {
		t.Errorf("expected restore success message, got:\n%s", out)
	}

	data, err := os.ReadFile(agentsDB)
	if err != nil {
		t.Fatalf("agents.db not restored: %v", err)
	}
	if string(data) != "sqlite payload" {
		t.Errorf("agents.db content = %q, want original payload", data)
	}
}

func TestRunRestoreNamedMissing(t *testing.T) {
	setupTestHome(t)

	_, err := captureStdout(t, func() error {
		return runRestore(restoreCmd, []string{"backup-2020-01-01T00-00-00"})
	})
	if err == nil {
		t.Fatal("expected an error for a missing named backup")
	}
	if !strings.Contains(err.Error(), "backup not found") {
		t.Errorf("error = %q, want it to say the backup was not found", err)
	}
	if !strings.Contains(err.Error(), "perchup backup --list") {
		t.Errorf("error = %q, want it to point at --list", err)
	}
}

func TestResolveBackupArgBareName(t *testing.T) {
	home := setupTestHome(t)
	seedPerchSettings(t, home)

	if _, err := captureStdout(t, func() error {
		return runBackup(backupCmd, nil)
	}); err != nil {
		t.Fatalf("runBackup: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	backups, err := newBackupManager(cfg, nil)
	if err != nil {
		t.Fatalf("newBackupManager: %v", err)
	}

	latest := backups.Latest()
	if latest == "" {
		t.Fatal("no backup on disk")
	}

	// A bare name from --list resolves under the backup root.
	got, err := resolveBackupArg(backups, filepath.Base(latest))
	if err != nil {
		t.Fatalf("resolveBackupArg: %v", err)
	}
	if got != latest {
		t.Errorf("resolveBackupArg = %q, want %q", got, latest)
	}

	// An absolute path passes through.
	got, err = resolveBackupArg(backups, latest)
	if err != nil {
		t.Fatalf("resolveBackupArg(abs): %v", err)
	}
	if got != latest {
		t.Errorf("resolveBackupArg(abs) = %q, want %q", got, latest)
	}

	// "latest" is case-insensitive.
	got, err = resolveBackupArg(backups, "LATEST")
	if err != nil {
		t.Fatalf("resolveBackupArg(LATEST): %v", err)
	}
	if got != latest {
		t.Errorf("resolveBackupArg(LATEST) = %q, want %q", got, latest)
	}
}
