package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/perchlabs/perchup/internal/backup"
)

const (
	// DefaultDebounce is how long the settings tree must stay quiet
	// after a change before a backup is taken. Perch writes agents.db
	// in bursts; backing up mid-burst would capture a torn state.
	DefaultDebounce = 30 * time.Second

	// DefaultMinInterval is the minimum spacing between automatic
	// backups. Changes inside the window postpone the backup rather
	// than dropping it.
	DefaultMinInterval = 15 * time.Minute
)

// Watcher observes the Perch settings directory and takes an automatic
// backup once writes settle.
type Watcher struct {
	settingsDir string
	backups     *backup.Manager
	tracked     []string
	logger      *zap.Logger
	debounce    time.Duration
	minInterval time.Duration

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu         sync.Mutex
	lastBackup time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger attaches a logger for daemon diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce overrides the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMinInterval overrides the minimum spacing between auto backups.
// Zero disables the spacing check.
func WithMinInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.minInterval = d
		}
	}
}

// New creates a Watcher over the backup manager's settings directory.
func New(backups *backup.Manager, opts ...Option) (*Watcher, error) {
	if backups == nil {
		return nil, fmt.Errorf("backup manager cannot be nil")
	}
	cfg := backups.Config()

	w := &Watcher{
		settingsDir: cfg.SettingsDir,
		backups:     backups,
		tracked:     append(append([]string{}, cfg.CriticalFiles...), cfg.InformationalFiles...),
		logger:      zap.NewNop(),
		debounce:    DefaultDebounce,
		minInterval: DefaultMinInterval,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching the settings tree. Fails when the settings
// directory does not exist yet; there is nothing to protect before the
// first run of Perch.
func (w *Watcher) Start() error {
	if _, err := os.Stat(w.settingsDir); err != nil {
		return fmt.Errorf("settings directory %s is not watchable: %w", w.settingsDir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.addTree(w.settingsDir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch settings tree: %w", err)
	}

	w.wg.Add(1)
	go w.run()

	w.logger.Info("watching settings directory",
		zap.String("dir", w.settingsDir),
		zap.Duration("debounce", w.debounce),
		zap.Duration("min_interval", w.minInterval))
	return nil
}

// Stop halts the watch loop. Safe to call before Start.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// addTree registers dir and every subdirectory with the fsnotify
// watcher. fsnotify watches are not recursive on Linux.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// run is the event loop: collect relevant events, arm the debounce
// timer, and back up once the tree goes quiet.
func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	rearm := func(d time.Duration) {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				// New subdirectories (e.g. data/ on first run) must be
				// watched too.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("settings change", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			rearm(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if wait := w.untilAllowed(); wait > 0 {
				w.logger.Debug("postponing auto backup", zap.Duration("wait", wait))
				rearm(wait)
				continue
			}
			w.takeBackup()

		case <-w.stopCh:
			return
		}
	}
}

// untilAllowed returns how long until the minimum interval permits
// another auto backup, or 0 when one may run now.
func (w *Watcher) untilAllowed() time.Duration {
	if w.minInterval <= 0 {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastBackup.IsZero() {
		return 0
	}
	remaining := w.minInterval - time.Since(w.lastBackup)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (w *Watcher) takeBackup() {
	outcome, err := w.backups.Create("auto")
	if err != nil {
		w.logger.Warn("auto backup failed", zap.Error(err))
		return
	}
	if !outcome.Created {
		w.logger.Info("nothing to back up")
		return
	}

	w.mu.Lock()
	w.lastBackup = time.Now()
	w.mu.Unlock()

	w.logger.Info("auto backup created", zap.String("path", outcome.Path))
}

// relevant reports whether an event should arm the backup timer.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return trackedPath(w.settingsDir, w.tracked, ev.Name)
}
