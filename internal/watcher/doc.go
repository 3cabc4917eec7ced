// Package watcher keeps Perch settings protected by taking automatic
// backups when they change.
//
// An fsnotify watch covers the settings directory and its
// subdirectories. Relevant changes (tracked settings files and anything
// under data/) arm a debounce timer; when the tree has been quiet for
// the debounce period and the minimum interval since the previous auto
// backup has passed, the watcher calls backup.Manager.Create("auto").
// SQLite journal churn (-wal, -shm, -journal) is ignored so a running
// Perch does not hold the timer armed forever.
//
// Key features:
//   - Recursive watch with re-registration of newly created directories
//   - Debounced backups (default 30s quiet period, 15min spacing)
//   - Daemon mode with PID file management and signal-0 liveness probe
//   - Graceful shutdown on SIGTERM/SIGINT
//
// Example usage:
//
//	mgr, err := backup.New(backup.Config{
//		SettingsDir: settingsDir,
//		BackupRoot:  backupRoot,
//		Retention:   5,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	w, err := watcher.New(mgr)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Watch in the foreground
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
//
//	// Or detach as a daemon
//	if err := w.StartDaemon(pidFile, logFile); err != nil {
//		log.Fatal(err)
//	}
package watcher
