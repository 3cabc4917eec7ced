package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/perchlabs/perchup/internal/config"
	"github.com/perchlabs/perchup/internal/store"
)

func TestStatusCommand(t *testing.T) {
	if statusCmd == nil {
		t.Fatal("statusCmd is nil")
	}

	if statusCmd.Use != "status" {
		t.Errorf("statusCmd.Use = %q, want %q", statusCmd.Use, "status")
	}

	if statusCmd.Short == "" {
		t.Error("statusCmd.Short is empty")
	}

	if statusCmd.RunE == nil {
		t.Error("statusCmd.RunE is nil")
	}
}

// A machine that has never run install still gets a full status, and
// without a source checkout no remote call is attempted.
func TestRunStatusFreshMachine(t *testing.T) {
	setupTestHome(t)

	out, err := captureStdout(t, func() error {
		return runStatus(statusCmd, nil)
	})
	if err != nil {
		t.Fatalf("runStatus: %v", err)
	}

	expectedPhrases := []string{
		"not installed",
		"not cloned",
		"missing data/agents.db",
		"none yet",
		"stopped",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(out, phrase) {
			t.Errorf("expected status to contain %q, got:\n%s", phrase, out)
		}
	}

	if strings.Contains(out, "Recent history") {
		t.Errorf("fresh machine should have no history section, got:\n%s", out)
	}
}

func TestLastInstallTime(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	if when := lastInstallTime(st); when != nil {
		t.Errorf("empty store should have no install time, got %v", when)
	}

	if _, err := st.RecordEvent(store.KindInstall, "v1.0.0", store.OutcomeOK, ""); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if _, err := st.RecordEvent(store.KindUpdate, "v1.1.0", store.OutcomeFailed, "build failed"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	when := lastInstallTime(st)
	if when == nil {
		t.Fatal("expected an install time after a successful install event")
	}
	if time.Since(*when) > time.Minute {
		t.Errorf("install time %v is not recent", *when)
	}
}

func TestBackupLine(t *testing.T) {
	home := setupTestHome(t)

	cfg := &config.Config{
		SettingsDir: filepath.Join(home, ".config", "perch"),
		BackupRoot:  filepath.Join(home, ".perchup", "backups"),
		Retention:   5,
	}
	backups, err := newBackupManager(cfg, nil)
	if err != nil {
		t.Fatalf("newBackupManager: %v", err)
	}

	if line := backupLine(backups); line != "none yet" {
		t.Errorf("backupLine with no backups = %q, want %q", line, "none yet")
	}

	seedPerchSettings(t, home)
	if _, err := backups.Create("test"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	line := backupLine(backups)
	if !strings.HasPrefix(line, "1 (newest ") {
		t.Errorf("backupLine = %q, want a count and age", line)
	}
	if !strings.Contains(line, "✓") {
		t.Errorf("backupLine = %q, want a verified mark", line)
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	pidFile := filepath.Join(dir, "watch.pid")
	if err := os.WriteFile(pidFile, []byte("12345\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if pid := readPID(pidFile); pid != 12345 {
		t.Errorf("readPID = %d, want 12345", pid)
	}

	if pid := readPID(filepath.Join(dir, "missing.pid")); pid != 0 {
		t.Errorf("readPID on missing file = %d, want 0", pid)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("not-a-pid"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if pid := readPID(garbage); pid != 0 {
		t.Errorf("readPID on garbage = %d, want 0", pid)
	}
}
