package app

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// setupTestHome points HOME and XDG_CONFIG_HOME at a fresh temp
// directory and routes the history database there, so command runs
// cannot touch the real user environment. Returns the temp home.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	oldDBPath := dbPath
	dbPath = filepath.Join(home, ".perchup", "test.db")
	t.Cleanup(func() { dbPath = oldDBPath })

	if err := os.MkdirAll(filepath.Join(home, ".perchup"), 0755); err != nil {
		t.Fatalf("mkdir state dir: %v", err)
	}
	return home
}

// seedPerchSettings creates a settings directory with the agent
// database and the informational files in place.
func seedPerchSettings(t *testing.T, home string) string {
	t.Helper()

	settings := filepath.Join(home, ".config", "perch")
	if err := os.MkdirAll(filepath.Join(settings, "data"), 0755); err != nil {
		t.Fatalf("mkdir settings: %v", err)
	}

	files := map[string]string{
		filepath.Join("data", "agents.db"): "sqlite payload",
		filepath.Join("data", "auth.json"): `{"token":"t"}`,
		"window-state.json":                `{"w":800,"h":600}`,
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(settings, rel), []byte(content), 0644); err != nil {
			t.Fatalf("seed %s: %v", rel, err)
		}
	}
	return settings
}

// captureStdout runs fn with os.Stdout redirected to a pipe and
// returns everything it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}
	return buf.String(), runErr
}
