package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/perchlabs/perchup/internal/fsutil"
)

// Restore overlays the contents of backupPath onto the settings
// directory and verifies the critical files afterwards. The settings
// directory is created if absent and is never cleared first, so files
// written since the backup was taken survive unless the backup
// overwrites them.
func (m *Manager) Restore(backupPath string) error {
	if !fsutil.PathExists(backupPath) {
		return fmt.Errorf("%w: %s", ErrNotFound, backupPath)
	}

	if err := os.MkdirAll(m.cfg.SettingsDir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := m.copy(backupPath, m.cfg.SettingsDir); err != nil {
		return fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}

	if v := m.VerifySettings(); !v.OK {
		return &VerificationError{Path: m.cfg.SettingsDir, Missing: v.Missing}
	}
	return nil
}

// VerifySettings checks each critical file under the settings
// directory. Pure inspection, no side effects; informational files are
// never part of the result.
func (m *Manager) VerifySettings() Verification {
	var missing []string
	for _, rel := range m.cfg.CriticalFiles {
		if !fsutil.PathExists(filepath.Join(m.cfg.SettingsDir, rel)) {
			missing = append(missing, rel)
		}
	}
	return Verification{OK: len(missing) == 0, Missing: missing}
}

// VerifyBackup reports whether backupPath holds every critical file
// that currently exists in the settings directory. Critical files
// absent from the live directory are not required in the backup; what
// never existed cannot have been copied.
func (m *Manager) VerifyBackup(backupPath string) bool {
	return len(m.backupMissing(backupPath)) == 0
}

// backupMissing lists the critical files present in the settings
// directory but absent from the backup. The copy primitive can report
// success while quietly skipping files, so this check is the contract
// that actually matters: can Perch still open its agent database after
// a restore.
func (m *Manager) backupMissing(backupPath string) []string {
	var missing []string
	for _, rel := range m.cfg.CriticalFiles {
		if !fsutil.PathExists(filepath.Join(m.cfg.SettingsDir, rel)) {
			continue
		}
		if !fsutil.PathExists(filepath.Join(backupPath, rel)) {
			missing = append(missing, rel)
		}
	}
	return missing
}
