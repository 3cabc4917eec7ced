package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/perchlabs/perchup/internal/distro"
	"github.com/perchlabs/perchup/internal/gitrepo"
	"github.com/perchlabs/perchup/internal/helper"
	"github.com/perchlabs/perchup/internal/output"
	"github.com/perchlabs/perchup/internal/store"
	"github.com/perchlabs/perchup/internal/version"
	"github.com/spf13/cobra"
)

var (
	installFlagRef      string
	installFlagYes      bool
	installFlagSkipDeps bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Build and install Perch from source",
	Long: `Install Perch by building the upstream source on this machine.

The flow:
  1. Detect your distribution and install missing build dependencies
  2. Back up existing Perch settings (skipped on a fresh machine)
  3. Clone the Perch repository and check out the newest release tag
  4. Build, stage, and install (as a .deb via apt where possible)
  5. Install the perch-update helper script onto your PATH

Settings are never touched by the install itself; the backup exists so
a later update or restore can always fall back to a known-good state.

Examples:
  # Install the latest release
  perchup install

  # Pin a specific tag or branch
  perchup install --ref v0.4.2

  # Non-interactive (answers yes to prompts)
  perchup install --yes`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installFlagRef, "ref", "", "tag or branch to install (default: newest release tag)")
	installCmd.Flags().BoolVar(&installFlagYes, "yes", false, "skip confirmation prompts")
	installCmd.Flags().BoolVar(&installFlagSkipDeps, "skip-deps", false, "do not install build dependencies")

	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	info, err := distro.Detect()
	if err != nil {
		return fmt.Errorf("cannot install on this system: %w", err)
	}
	fmt.Printf("✓ Detected %s (%s packages)\n", info.ID, info.Family)

	if err := ensureBuildDeps(ctx, info.Family); err != nil {
		return err
	}

	backups, err := newBackupManager(cfg, st)
	if err != nil {
		return err
	}
	backupPath, err := preFlightBackup(backups, "pre-install", installFlagYes)
	if err != nil {
		return err
	}

	srcDir, err := getSrcDir()
	if err != nil {
		return err
	}

	if gitrepo.IsRepo(srcDir) {
		spinner := output.NewSpinner("Fetching Perch source...")
		if err := gitrepo.Fetch(ctx, srcDir); err != nil {
			spinner.Stop()
			return err
		}
		spinner.StopWithMessage("✓ Source up to date")
	} else {
		spinner := output.NewSpinner("Cloning Perch source...")
		if err := gitrepo.Clone(ctx, cfg.RepoURL, srcDir); err != nil {
			spinner.Stop()
			return err
		}
		spinner.StopWithMessage("✓ Source cloned")
	}

	tag, err := resolveInstallRef(ctx, cfg.RepoURL, cfg.Ref)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		recordEvent(st, store.KindInstall, tag, store.OutcomeFailed, err.Error())
		return err
	}

	if err := gitrepo.Checkout(ctx, srcDir, tag); err != nil {
		return fail(err)
	}
	fmt.Printf("✓ Checked out %s\n", tag)

	if err := buildAndInstall(ctx, info.Family, srcDir, tag); err != nil {
		return fail(err)
	}

	if err := installHelper(cfg.BinDir); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠  Could not install the update helper: %v\n", err)
	}

	detail := "no settings backup"
	if backupPath != "" {
		detail = "backup: " + backupPath
	}
	recordEvent(st, store.KindInstall, tag, store.OutcomeOK, detail)

	fmt.Printf("\n✓ Perch %s installed\n", tag)
	fmt.Println("\nNext steps:")
	fmt.Println("  • Launch Perch from your application menu or with 'perch'")
	fmt.Println("  • Run 'perchup watch --daemon' to back up settings automatically")
	fmt.Println("  • Run 'perchup update' when a new release is out")

	return nil
}

// ensureBuildDeps checks for the tools the build needs and installs the
// distribution's build-dependency set when any are missing.
func ensureBuildDeps(ctx context.Context, family distro.Family) error {
	if installFlagSkipDeps {
		if missing := distro.MissingTools(); len(missing) > 0 {
			fmt.Printf("⚠  Missing build tools (--skip-deps): %s\n", strings.Join(missing, ", "))
		}
		return nil
	}

	missing := distro.MissingTools()
	if len(missing) == 0 {
		fmt.Println("✓ Build tools present")
		return nil
	}

	fmt.Printf("Missing build tools: %s\n", strings.Join(missing, ", "))
	fmt.Println("Installing build dependencies (may prompt for sudo)...")

	if err := distro.RefreshPackageIndex(ctx, family); err != nil {
		return fmt.Errorf("failed to refresh package index: %w", err)
	}
	if err := distro.InstallDeps(ctx, family); err != nil {
		return fmt.Errorf("failed to install build dependencies: %w", err)
	}
	fmt.Println("✓ Build dependencies installed")
	return nil
}

// resolveInstallRef picks the ref to check out: the --ref flag, then
// the config pin, then the newest release tag on the remote. Explicit
// pins are taken verbatim so branches work; a discovered tag must parse
// as a release version.
func resolveInstallRef(ctx context.Context, repoURL, configRef string) (string, error) {
	if installFlagRef != "" {
		fmt.Printf("Using pinned ref %s\n", installFlagRef)
		return installFlagRef, nil
	}
	if configRef != "" {
		fmt.Printf("Using ref %s from config\n", configRef)
		return configRef, nil
	}

	spinner := output.NewSpinner("Finding newest release...")
	tag, err := gitrepo.LatestRemoteTag(ctx, repoURL)
	if err != nil {
		spinner.Stop()
		return "", fmt.Errorf("failed to find a release to install: %w", err)
	}
	if err := version.Validate(tag); err != nil {
		spinner.Stop()
		return "", fmt.Errorf("newest remote tag %q is not a release version: %w", tag, err)
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ Newest release is %s", tag))
	return tag, nil
}

// installHelper puts the perch-update script in place and makes sure
// its directory is reachable from the user's shell.
func installHelper(binDir string) error {
	changed, err := helper.Install(binDir)
	if err != nil {
		return err
	}
	if changed {
		fmt.Printf("✓ Installed %s helper in %s\n", helper.ScriptName, binDir)
	}

	added, configFile, err := helper.EnsurePathEntry(binDir)
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("  Added %s to PATH in %s (restart your shell to pick it up)\n", binDir, configFile)
	}
	return nil
}
