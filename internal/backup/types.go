package backup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perchlabs/perchup/internal/fsutil"
	"github.com/perchlabs/perchup/internal/store"
)

// Default settings-protection policy for Perch. The agent database is
// the one file Perch cannot start without; credentials and window
// geometry are recreated on demand and only shown for information.
var (
	DefaultCriticalFiles      = []string{"data/agents.db"}
	DefaultInformationalFiles = []string{"data/auth.json", "window-state.json"}
)

// DefaultRetention is the number of backups kept when the user has not
// configured a limit.
const DefaultRetention = 5

// Sentinel failures callers branch on with errors.Is.
var (
	// ErrCopyFailed marks a bulk copy that reported failure.
	ErrCopyFailed = errors.New("copy failed")
	// ErrNotFound marks a restore request against a missing backup.
	ErrNotFound = errors.New("backup not found")
)

// VerificationError reports critical files absent after a copy
// nominally succeeded. Path is the directory that was inspected (the
// new backup after a create, the settings directory after a restore);
// it is carried so the caller can inspect or discard the attempt.
type VerificationError struct {
	Path    string
	Missing []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for %s: missing %s", e.Path, strings.Join(e.Missing, ", "))
}

// Outcome describes what Create did. Created is false when the
// settings directory did not exist, which is a success: a fresh
// install has nothing to protect yet.
type Outcome struct {
	Path    string
	Created bool
}

// Verification is the result of checking the critical file set against
// a settings directory.
type Verification struct {
	OK      bool
	Missing []string
}

// Config carries everything the Manager needs. All paths are absolute;
// nothing is read from ambient global state.
type Config struct {
	SettingsDir        string
	BackupRoot         string
	Retention          int
	CriticalFiles      []string
	InformationalFiles []string
}

// CopyFunc copies the contents of one directory into another with
// overlay semantics. Swapped out in tests to exercise copy failures.
type CopyFunc func(src, dst string) error

// Manager creates, rotates, verifies, and restores backups of the
// Perch settings directory.
type Manager struct {
	cfg    Config
	copy   CopyFunc
	logger *zap.Logger
	store  *store.Store
	now    func() time.Time
}

// Option adjusts a Manager at construction.
type Option func(*Manager)

// WithLogger attaches a logger for best-effort diagnostics such as
// rotation failures.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStore attaches a history store; backup events are recorded in it
// best-effort and never fail the operation.
func WithStore(st *store.Store) Option {
	return func(m *Manager) {
		m.store = st
	}
}

// WithCopyFunc replaces the bulk copy primitive.
func WithCopyFunc(fn CopyFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.copy = fn
		}
	}
}

// New creates a backup Manager. The retention limit must be at least 1.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Retention < 1 {
		return nil, fmt.Errorf("retention limit must be at least 1, got %d", cfg.Retention)
	}
	if cfg.SettingsDir == "" || cfg.BackupRoot == "" {
		return nil, fmt.Errorf("settings directory and backup root are required")
	}
	if len(cfg.CriticalFiles) == 0 {
		cfg.CriticalFiles = DefaultCriticalFiles
	}

	m := &Manager{
		cfg:    cfg,
		copy:   fsutil.CopyTree,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}
