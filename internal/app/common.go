package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/perchlabs/perchup/internal/backup"
	"github.com/perchlabs/perchup/internal/builder"
	"github.com/perchlabs/perchup/internal/config"
	"github.com/perchlabs/perchup/internal/distro"
	"github.com/perchlabs/perchup/internal/output"
	"github.com/perchlabs/perchup/internal/store"
)

// loadConfig reads the user's config.toml with defaults applied.
func loadConfig() (*config.Config, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}
	return config.Load(dir)
}

// openStore opens the history database, creating the schema if needed.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return st, nil
}

// newBackupManager builds the settings backup manager from the loaded
// config, with events audited into the history store.
func newBackupManager(cfg *config.Config, st *store.Store) (*backup.Manager, error) {
	return backup.New(backup.Config{
		SettingsDir:        cfg.SettingsDir,
		BackupRoot:         cfg.BackupRoot,
		Retention:          cfg.Retention,
		CriticalFiles:      backup.DefaultCriticalFiles,
		InformationalFiles: backup.DefaultInformationalFiles,
	}, backup.WithStore(st))
}

// confirm prompts with a [y/N] question and returns true on y/yes.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// recordEvent writes a history row best-effort. Losing an audit row
// must never fail an install that already succeeded on disk.
func recordEvent(st *store.Store, kind, version, outcome, detail string) {
	if st == nil {
		return
	}
	if _, err := st.RecordEvent(kind, version, outcome, detail); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record %s in history: %v\n", kind, err)
	}
}

// preFlightBackup takes a settings backup before an install or update
// touches the system. A backup failure is surfaced but survivable: the
// user decides whether to proceed unprotected (or --yes decides for
// them, with a warning).
func preFlightBackup(backups *backup.Manager, reason string, yes bool) (string, error) {
	spinner := output.NewSpinner("Backing up settings...")
	outcome, err := backups.Create(reason)
	if err != nil {
		spinner.Stop()
		fmt.Fprintf(os.Stderr, "⚠  Settings backup failed: %v\n", err)
		if !yes && !confirm("Continue without a settings backup?") {
			return "", fmt.Errorf("cancelled: settings are not backed up")
		}
		if yes {
			fmt.Fprintln(os.Stderr, "   Continuing anyway (--yes).")
		}
		return "", nil
	}

	if !outcome.Created {
		spinner.StopWithMessage("✓ No settings to back up yet")
		return "", nil
	}

	spinner.StopWithMessage(fmt.Sprintf("✓ Settings backed up to %s", filepath.Base(outcome.Path)))
	return outcome.Path, nil
}

// buildAndInstall compiles the checkout, stages it, and installs the
// result: as a .deb through apt where dpkg is available, or straight
// under /usr/local otherwise. tag is the release being installed, used
// for the package version.
func buildAndInstall(ctx context.Context, family distro.Family, srcDir, tag string) error {
	spinner := output.NewSpinner("Building Perch (this can take several minutes)...")
	if err := builder.Build(ctx, srcDir); err != nil {
		spinner.Stop()
		return err
	}
	spinner.StopWithMessage("✓ Build complete")

	stageDir, err := getStageDir()
	if err != nil {
		return err
	}

	spinner = output.NewSpinner("Staging install tree...")
	if err := builder.Stage(ctx, srcDir, stageDir); err != nil {
		spinner.Stop()
		return err
	}
	spinner.StopWithMessage("✓ Install tree staged")

	pkgVersion := strings.TrimPrefix(tag, "v")

	if family == distro.FamilyApt && distro.CanBuildDeb() {
		stateDir, err := getStateDir()
		if err != nil {
			return err
		}

		spinner = output.NewSpinner("Building Debian package...")
		pkgPath, err := builder.BuildDeb(ctx, stageDir, filepath.Join(stateDir, "pkg"), pkgVersion)
		if err != nil {
			spinner.Stop()
			return err
		}
		spinner.StopWithMessage(fmt.Sprintf("✓ Built %s", filepath.Base(pkgPath)))

		fmt.Println("Installing package (may prompt for sudo)...")
		if err := builder.InstallDeb(ctx, pkgPath); err != nil {
			return err
		}
		fmt.Println("✓ Package installed")
		return nil
	}

	fmt.Println("Installing under /usr/local (may prompt for sudo)...")
	if err := builder.InstallDirect(ctx, stageDir); err != nil {
		return err
	}
	fmt.Println("✓ Installed under /usr/local")
	return nil
}
