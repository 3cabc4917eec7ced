package watcher

import (
	"path/filepath"
	"testing"
)

func TestJournalNoise(t *testing.T) {
	noisy := []string{
		"agents.db-wal",
		"agents.db-shm",
		"agents.db-journal",
		"auth.json.tmp",
		".window-state.json.swp",
	}
	for _, name := range noisy {
		if !journalNoise(name) {
			t.Errorf("expected %q to be noise", name)
		}
	}

	quiet := []string{
		"agents.db",
		"auth.json",
		"window-state.json",
		"wal", // suffix only counts after a real name
	}
	for _, name := range quiet {
		if journalNoise(name) {
			t.Errorf("expected %q not to be noise", name)
		}
	}
}

func TestTrackedPath(t *testing.T) {
	settings := filepath.Join("/home", "u", ".config", "perch")
	tracked := []string{"data/agents.db", "data/auth.json", "window-state.json"}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"critical db", filepath.Join(settings, "data", "agents.db"), true},
		{"informational root file", filepath.Join(settings, "window-state.json"), true},
		{"anything under data", filepath.Join(settings, "data", "notes.md"), true},
		{"data dir itself", filepath.Join(settings, "data"), true},
		{"untracked root file", filepath.Join(settings, "theme.css"), false},
		{"wal churn", filepath.Join(settings, "data", "agents.db-wal"), false},
		{"shm churn", filepath.Join(settings, "data", "agents.db-shm"), false},
		{"outside the tree", filepath.Join("/home", "u", "other.txt"), false},
		{"prefix sibling dir", filepath.Join("/home", "u", ".config", "perch-extra", "data", "x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trackedPath(settings, tracked, tt.path); got != tt.want {
				t.Errorf("trackedPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
