package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perchlabs/perchup/internal/backup"
)

func seedSettings(t *testing.T, settingsDir string) {
	t.Helper()
	dbPath := filepath.Join(settingsDir, "data", "agents.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestWatcher(t *testing.T, opts ...Option) (*Watcher, *backup.Manager) {
	t.Helper()
	settings := t.TempDir()
	seedSettings(t, settings)

	mgr, err := backup.New(backup.Config{
		SettingsDir: settings,
		BackupRoot:  filepath.Join(t.TempDir(), "backups"),
		Retention:   3,
	})
	if err != nil {
		t.Fatalf("backup.New failed: %v", err)
	}

	w, err := New(mgr, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w, mgr
}

func waitForBackups(t *testing.T, mgr *backup.Manager, want int, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(mgr.List()) >= want {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return len(mgr.List()) >= want
}

func TestNewRequiresManager(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil manager")
	}
}

func TestStartMissingSettingsDir(t *testing.T) {
	mgr, err := backup.New(backup.Config{
		SettingsDir: filepath.Join(t.TempDir(), "never-created"),
		BackupRoot:  t.TempDir(),
		Retention:   3,
	})
	if err != nil {
		t.Fatal(err)
	}
	w, err := New(mgr)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("expected Start to fail for a missing settings directory")
	}
}

func TestStopBeforeStart(t *testing.T) {
	w, _ := newTestWatcher(t)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start() error = %v, want nil", err)
	}
}

func TestAutoBackupAfterQuietPeriod(t *testing.T) {
	w, mgr := newTestWatcher(t,
		WithDebounce(100*time.Millisecond),
		WithMinInterval(0))

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dbPath := filepath.Join(mgr.Config().SettingsDir, "data", "agents.db")
	if err := os.WriteFile(dbPath, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitForBackups(t, mgr, 1, 5*time.Second) {
		t.Fatal("no backup created after settings change settled")
	}
}

func TestJournalChurnDoesNotTriggerBackup(t *testing.T) {
	w, mgr := newTestWatcher(t,
		WithDebounce(100*time.Millisecond),
		WithMinInterval(0))

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	walPath := filepath.Join(mgr.Config().SettingsDir, "data", "agents.db-wal")
	if err := os.WriteFile(walPath, []byte("churn"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	if got := len(mgr.List()); got != 0 {
		t.Errorf("journal churn produced %d backups, want 0", got)
	}
}

func TestMinIntervalSpacesBackups(t *testing.T) {
	w, mgr := newTestWatcher(t,
		WithDebounce(50*time.Millisecond),
		WithMinInterval(time.Hour))

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dbPath := filepath.Join(mgr.Config().SettingsDir, "data", "agents.db")
	if err := os.WriteFile(dbPath, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitForBackups(t, mgr, 1, 5*time.Second) {
		t.Fatal("first change did not produce a backup")
	}

	if err := os.WriteFile(dbPath, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	if got := len(mgr.List()); got != 1 {
		t.Errorf("second change inside the interval produced %d backups, want 1", got)
	}
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	w, mgr := newTestWatcher(t,
		WithDebounce(100*time.Millisecond),
		WithMinInterval(0))

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// A directory created after Start must still feed the watch.
	nested := filepath.Join(mgr.Config().SettingsDir, "data", "workspaces")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	// Small pause so the watch registration for the new directory lands
	// before the write below.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(nested, "w1.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitForBackups(t, mgr, 1, 5*time.Second) {
		t.Fatal("write inside a new subdirectory did not produce a backup")
	}
}
