package watcher

import (
	"path/filepath"
	"strings"
)

// journalSuffixes are transient files SQLite and atomic writers leave
// next to the real data. Backing up on every journal write would keep
// the debounce timer armed forever.
var journalSuffixes = []string{"-wal", "-shm", "-journal", ".tmp", ".swp"}

// journalNoise reports whether a basename is write-churn rather than a
// settings change worth protecting.
func journalNoise(name string) bool {
	for _, suffix := range journalSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// trackedPath reports whether path (absolute, inside settingsDir) is a
// tracked settings file or lives under the data directory.
func trackedPath(settingsDir string, tracked []string, path string) bool {
	if journalNoise(filepath.Base(path)) {
		return false
	}

	rel, err := filepath.Rel(settingsDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, t := range tracked {
		if rel == t {
			return true
		}
	}
	return rel == "data" || strings.HasPrefix(rel, "data/")
}
