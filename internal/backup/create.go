package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perchlabs/perchup/internal/fsutil"
)

const (
	backupPrefix    = "backup-"
	timestampLayout = "2006-01-02T15-04-05"
)

// backupNameRe matches directory names this Manager creates. The
// timestamp encoding makes lexicographic order equal chronological
// order; the optional numeric suffix disambiguates same-second
// creations without breaking that ordering.
var backupNameRe = regexp.MustCompile(`^backup-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}(-\d{2})?$`)

// Create takes a backup of the settings directory. Rotation runs
// first so the new backup never pushes the count past the retention
// limit, then the directory is copied and verified.
//
// A missing settings directory is not an error: Create returns an
// Outcome with Created false and no backup is produced.
func (m *Manager) Create(reason string) (*Outcome, error) {
	if !fsutil.PathExists(m.cfg.SettingsDir) {
		return &Outcome{}, nil
	}

	if err := os.MkdirAll(m.cfg.BackupRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup root: %w", err)
	}

	m.rotate()

	path, err := m.newBackupDir()
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Path: path, Created: true}

	if err := m.copy(m.cfg.SettingsDir, path); err != nil {
		// The partial backup is left on disk; rotation reclaims it
		// later and its contents can still help debugging.
		return outcome, fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}

	if missing := m.backupMissing(path); len(missing) > 0 {
		m.record(path, reason, false)
		return outcome, &VerificationError{Path: path, Missing: missing}
	}

	m.record(path, reason, true)
	return outcome, nil
}

// newBackupDir reserves a fresh backup directory. Second-resolution
// timestamps collide when backups are taken in quick succession, so on
// collision a -NN suffix is tried until the exclusive create succeeds.
func (m *Manager) newBackupDir() (string, error) {
	base := backupPrefix + m.now().Format(timestampLayout)

	name := base
	for n := 1; ; n++ {
		path := filepath.Join(m.cfg.BackupRoot, name)
		err := os.Mkdir(path, 0755)
		if err == nil {
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create backup directory %s: %w", path, err)
		}
		if n > 99 {
			return "", fmt.Errorf("no free backup name left for %s", base)
		}
		name = fmt.Sprintf("%s-%02d", base, n)
	}
}

// List returns the backup directories under the backup root, newest
// first. A missing backup root yields an empty list.
func (m *Manager) List() []string {
	entries, err := fsutil.ListDirEntries(m.cfg.BackupRoot)
	if err != nil {
		m.logger.Warn("could not list backup root",
			zap.String("root", m.cfg.BackupRoot), zap.Error(err))
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && backupNameRe.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(m.cfg.BackupRoot, name)
	}
	return paths
}

// Latest returns the newest backup path, or "" when there are none.
func (m *Manager) Latest() string {
	backups := m.List()
	if len(backups) == 0 {
		return ""
	}
	return backups[0]
}

// Timestamp extracts the creation time encoded in a backup's name.
// Reports false for paths whose base name this Manager did not create.
// The collision suffix is ignored; two backups from the same second
// share a timestamp.
func Timestamp(path string) (time.Time, bool) {
	name := filepath.Base(path)
	if !backupNameRe.MatchString(name) {
		return time.Time{}, false
	}
	stamp := strings.TrimPrefix(name, backupPrefix)[:len(timestampLayout)]
	t, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// rotate deletes the oldest backups so one slot is free for the backup
// about to be created. Deletion is best-effort: losing the ability to
// delete an old backup must not block protecting current settings.
func (m *Manager) rotate() {
	backups := m.List()
	keep := m.cfg.Retention - 1
	if len(backups) <= keep {
		return
	}

	for _, path := range backups[keep:] {
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("could not delete old backup",
				zap.String("path", path), zap.Error(err))
		}
	}
}

// record writes a backup audit row when a store is attached. The
// filesystem stays the source of truth; a failed insert is only
// logged.
func (m *Manager) record(path, reason string, verified bool) {
	if m.store == nil {
		return
	}
	if err := m.store.RecordBackup(path, reason, verified); err != nil {
		m.logger.Warn("could not record backup in history",
			zap.String("path", path), zap.Error(err))
	}
}
