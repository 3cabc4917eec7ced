package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/perchlabs/perchup/internal/output"
	"github.com/perchlabs/perchup/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchForeground  bool
	watchStop        bool
	watchStatus      bool
	watchPIDFile     string
	watchLogFile     string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Back up Perch settings automatically when they change",
		Long: `Watch the Perch settings directory and take a backup whenever its
contents change.

Changes are debounced: a backup is taken once the settings have been
quiet for 30 seconds, and at most one automatic backup is taken per 15
minutes. SQLite journal churn from a running Perch does not count as
a change, so the watcher stays idle while Perch merely has the agent
database open.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a detached background process
  • Stop: stop a running daemon
  • Status: report whether the daemon is running`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  perchup watch

  # Run as background daemon
  perchup watch --daemon

  # Check and stop the daemon
  perchup watch --status
  perchup watch --stop

  # Use custom PID and log files
  perchup watch --daemon --pid-file /tmp/watch.pid --log-file /tmp/watch.log`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().BoolVar(&watchForeground, "foreground", false, "run in the foreground (the default)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().BoolVar(&watchStatus, "status", false, "report daemon status")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.perchup/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.perchup/watch.log)")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Get default paths if not specified
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}
	if watchStatus {
		return reportWatchStatus()
	}

	if watchDaemonChild {
		return runWatchDaemonChild()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	backups, err := newBackupManager(cfg, st)
	if err != nil {
		return err
	}

	w, err := watcher.New(backups)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemon {
		return startWatchDaemon(w)
	}
	return runWatchForeground(w, cfg.SettingsDir)
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Watch daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func reportWatchStatus() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		fmt.Printf("Watch daemon running (PID %d)\n", readPID(watchPIDFile))
		fmt.Printf("  Log file: %s\n", watchLogFile)
	} else {
		fmt.Println("Watch daemon is not running")
		fmt.Println("  Start it with: perchup watch --daemon")
	}
	return nil
}

func startWatchDaemon(w *watcher.Watcher) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", watchPIDFile)
	}

	spinner := output.NewSpinner("Starting daemon...")
	if err := w.StartDaemon(watchPIDFile, watchLogFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nSettings auto-backup daemon started\n")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: perchup watch --stop\n")

	return nil
}

// runWatchDaemonChild runs as the detached daemon process. Its stdout
// and stderr are redirected to the log file; structured logging goes
// through zap to the same place.
func runWatchDaemonChild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	backups, err := newBackupManager(cfg, st)
	if err != nil {
		return err
	}

	logger, err := watcher.NewLogger(watchLogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	w, err := watcher.New(backups, watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	return w.RunDaemon(watchPIDFile)
}

func runWatchForeground(w *watcher.Watcher, settingsDir string) error {
	fmt.Println("Watching Perch settings (press Ctrl+C to stop)...")
	fmt.Println()

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Printf("Watching %s\n", settingsDir)
	fmt.Println("A backup is taken after 30s of quiet, at most every 15 minutes.")
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	fmt.Println("Settings watch stopped")

	return nil
}
