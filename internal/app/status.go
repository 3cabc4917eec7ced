package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/perchlabs/perchup/internal/backup"
	"github.com/perchlabs/perchup/internal/gitrepo"
	"github.com/perchlabs/perchup/internal/helper"
	"github.com/perchlabs/perchup/internal/output"
	"github.com/perchlabs/perchup/internal/store"
	"github.com/perchlabs/perchup/internal/version"
	"github.com/perchlabs/perchup/internal/watcher"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show install, backup, and watcher state",
	Long: `Display what perchup knows about this machine.

Shows:
  • Installed Perch version and when it was installed
  • Source checkout state and the newest release on the remote
  • Settings verification (is the agent database in place?)
  • Backup count and the age of the newest backup
  • Update helper and watch daemon state
  • Recent install, update, and restore history

The remote check is best-effort; when the network is down the rest of
the status still renders.`,
	Example: `  # Check status
  perchup status`,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srcDir, err := getSrcDir()
	if err != nil {
		return err
	}
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return err
	}

	// The status should render whatever it can even when the history
	// database is unavailable.
	var st *store.Store
	if path, err := getDBPath(); err == nil {
		if opened, err := store.Open(path); err == nil {
			st = opened
			defer st.Close()
		}
	}

	backups, err := newBackupManager(cfg, st)
	if err != nil {
		return err
	}

	const label = "%-12s"

	fmt.Println()

	// Installed version
	installed := ""
	if st != nil {
		installed, _ = st.LastInstalledVersion()
	}
	if installed == "" {
		fmt.Printf(label+"not installed  (run 'perchup install')\n", "Perch:")
	} else if when := lastInstallTime(st); when != nil {
		fmt.Printf(label+"%s (installed %s)\n", "Perch:", installed, output.FormatRelativeTime(*when))
	} else {
		fmt.Printf(label+"%s\n", "Perch:", installed)
	}

	// Source checkout and remote
	currentTag := ""
	if gitrepo.IsRepo(srcDir) {
		sourceLine := "checked out"
		if tag, err := gitrepo.CurrentTag(srcDir); err == nil {
			currentTag = tag
			sourceLine = tag + " checked out"
		}
		if dirty, err := gitrepo.IsDirty(srcDir); err == nil && dirty {
			sourceLine += " · local changes"
		}
		fmt.Printf(label+"%s\n", "Source:", sourceLine)
		fmt.Printf(label+"%s\n", "Remote:", remoteLine(cfg.RepoURL, currentTag))
	} else {
		fmt.Printf(label+"not cloned\n", "Source:")
	}

	// Settings verification
	if v := backups.VerifySettings(); v.OK {
		fmt.Printf(label+"✓ complete (%s)\n", "Settings:", cfg.SettingsDir)
	} else {
		fmt.Printf(label+"⚠ missing %s\n", "Settings:", strings.Join(v.Missing, ", "))
	}

	// Backups
	fmt.Printf(label+"%s\n", "Backups:", backupLine(backups))

	// Update helper
	switch {
	case !helper.Installed(cfg.BinDir):
		fmt.Printf(label+"not installed\n", "Helper:")
	case helper.OnPath():
		fmt.Printf(label+"%s on PATH ✓\n", "Helper:", helper.ScriptName)
	default:
		fmt.Printf(label+"installed · not on PATH ⚠ (restart your shell)\n", "Helper:")
	}

	// Watch daemon
	if running, err := watcher.IsDaemonRunning(pidFile); err == nil && running {
		fmt.Printf(label+"running (PID %d)\n", "Watcher:", readPID(pidFile))
	} else {
		fmt.Printf(label+"stopped  (run 'perchup watch --daemon')\n", "Watcher:")
	}

	// Recent history
	if st != nil {
		if events, err := st.ListEvents(5); err == nil && len(events) > 0 {
			fmt.Println("\nRecent history:")
			fmt.Print(output.RenderEventTable(events))
		}
	}

	fmt.Println()
	return nil
}

// lastInstallTime returns when the most recent successful install or
// update happened, or nil if there was none.
func lastInstallTime(st *store.Store) *time.Time {
	events, err := st.ListEvents(0)
	if err != nil {
		return nil
	}
	for _, e := range events {
		if e.Outcome == store.OutcomeOK && (e.Kind == store.KindInstall || e.Kind == store.KindUpdate) {
			t := e.CreatedAt
			return &t
		}
	}
	return nil
}

// remoteLine checks the newest remote tag and relates it to the
// current checkout. Network errors degrade to "unreachable" so status
// works offline.
func remoteLine(repoURL, currentTag string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	remoteTag, err := gitrepo.LatestRemoteTag(ctx, repoURL)
	if err != nil {
		return "unreachable"
	}
	if currentTag == "" {
		return remoteTag
	}

	newer, err := version.Newer(remoteTag, currentTag)
	if err != nil {
		return remoteTag
	}
	if newer {
		return fmt.Sprintf("%s available ⚠ (run 'perchup update')", remoteTag)
	}
	return fmt.Sprintf("%s · up to date ✓", remoteTag)
}

// backupLine summarizes the backups on disk.
func backupLine(backups *backup.Manager) string {
	paths := backups.List()
	if len(paths) == 0 {
		return "none yet"
	}

	newest := paths[0]
	age := ""
	if created, ok := backup.Timestamp(newest); ok {
		age = "newest " + output.FormatRelativeTime(created)
	} else {
		age = "newest " + filepath.Base(newest)
	}

	integrity := "✓"
	if !backups.VerifyBackup(newest) {
		integrity = "⚠ incomplete"
	}
	return fmt.Sprintf("%d (%s %s)", len(paths), age, integrity)
}

// readPID parses the PID file, returning 0 when unreadable.
func readPID(pidFile string) int {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}
