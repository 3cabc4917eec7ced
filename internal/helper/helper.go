// Package helper installs the perch-update convenience script and makes
// sure its directory is reachable from the user's shell.
//
// The script is a two-line shell wrapper that execs `perchup update`, so
// a user who only remembers "perch-update" still ends up in the real
// update flow with backups and verification.
package helper

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ScriptName is the basename of the installed helper script.
const ScriptName = "perch-update"

const pathMarker = "# perchup helper"

const scriptBody = `#!/bin/sh
# Installed by perchup. Safe to delete; perchup install recreates it.
exec perchup update "$@"
`

// Install writes the helper script into binDir. Idempotent: returns
// true only when the script was created or its contents changed.
func Install(binDir string) (bool, error) {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return false, fmt.Errorf("cannot create %s: %w", binDir, err)
	}

	scriptPath := filepath.Join(binDir, ScriptName)
	existing, err := os.ReadFile(scriptPath)
	if err == nil && bytes.Equal(existing, []byte(scriptBody)) {
		if info, statErr := os.Stat(scriptPath); statErr == nil && info.Mode().Perm()&0o111 != 0 {
			return false, nil
		}
	}

	if err := os.WriteFile(scriptPath, []byte(scriptBody), 0o755); err != nil {
		return false, fmt.Errorf("cannot write %s: %w", scriptPath, err)
	}
	return true, nil
}

// Installed reports whether an executable helper script exists in binDir.
func Installed(binDir string) bool {
	info, err := os.Stat(filepath.Join(binDir, ScriptName))
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// OnPath reports whether the helper script resolves from the current
// PATH.
func OnPath() bool {
	_, err := exec.LookPath(ScriptName)
	return err == nil
}

// EnsurePathEntry checks whether dir is on PATH and, if not, appends an
// export line guarded by the perchup marker to the user's shell config.
// Returns (added, configFile, err); added=false means nothing needed to
// change.
func EnsurePathEntry(dir string) (added bool, configFile string, err error) {
	for _, entry := range filepath.SplitList(os.Getenv("PATH")) {
		if entry == dir {
			return false, "", nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return false, "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	configPath, isFish := configFileFor(filepath.Base(os.Getenv("SHELL")), home)

	// The fish conf.d path needs its parent created.
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return false, "", fmt.Errorf("cannot create config directory %s: %w", filepath.Dir(configPath), err)
	}

	if existing, readErr := os.ReadFile(configPath); readErr == nil {
		if strings.Contains(string(existing), pathMarker) {
			return false, configPath, nil
		}
	}

	var line string
	if isFish {
		line = fmt.Sprintf("\n%s\nfish_add_path %s\n", pathMarker, dir)
	} else {
		line = fmt.Sprintf("\n%s\nexport PATH=%q:$PATH\n", pathMarker, dir)
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return false, "", fmt.Errorf("cannot open config file %s: %w", configPath, err)
	}
	defer f.Close()

	if _, err := fmt.Fprint(f, line); err != nil {
		return false, "", fmt.Errorf("cannot write to config file %s: %w", configPath, err)
	}
	return true, configPath, nil
}

// configFileFor maps a login shell to the startup file perchup appends
// its PATH entry to.
func configFileFor(shellName, home string) (path string, isFish bool) {
	switch shellName {
	case "zsh":
		return filepath.Join(home, ".zprofile"), false
	case "bash":
		return filepath.Join(home, ".bash_profile"), false
	case "fish":
		return filepath.Join(home, ".config", "fish", "conf.d", "perchup.fish"), true
	default:
		return filepath.Join(home, ".profile"), false
	}
}
