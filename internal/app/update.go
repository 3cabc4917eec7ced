package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/perchlabs/perchup/internal/backup"
	"github.com/perchlabs/perchup/internal/distro"
	"github.com/perchlabs/perchup/internal/gitrepo"
	"github.com/perchlabs/perchup/internal/manifest"
	"github.com/perchlabs/perchup/internal/output"
	"github.com/perchlabs/perchup/internal/plan"
	"github.com/perchlabs/perchup/internal/store"
	"github.com/perchlabs/perchup/internal/version"
	"github.com/spf13/cobra"
)

var (
	updateFlagForce bool
	updateFlagYes   bool
	updateFlagStash bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update Perch to the newest release",
	Long: `Update the installed Perch to the newest release tag.

Before anything is rebuilt, your settings are backed up and verified.
After the new version is installed the settings are checked again; if
critical files went missing, perchup offers to restore the backup it
just took.

The update is skipped when the checked-out tag already matches the
newest release. A tag that does not parse as a release version aborts
the update rather than guessing; perchup never downgrades on a guess.

Examples:
  # Update if a newer release exists
  perchup update

  # Rebuild the current release from scratch
  perchup update --force

  # Non-interactive, stashing any local source changes
  perchup update --yes --stash`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateFlagForce, "force", false, "rebuild and reinstall even when up to date")
	updateCmd.Flags().BoolVar(&updateFlagYes, "yes", false, "skip confirmation prompts")
	updateCmd.Flags().BoolVar(&updateFlagStash, "stash", false, "stash local source changes without asking")

	RootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
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

	srcDir, err := getSrcDir()
	if err != nil {
		return err
	}
	if !gitrepo.IsRepo(srcDir) {
		return fmt.Errorf("no Perch source checkout at %s\n\nRun 'perchup install' first", srcDir)
	}

	if missing := distro.MissingTools(); len(missing) > 0 {
		return fmt.Errorf("missing build tools: %s\n\nRun 'perchup install' to set up build dependencies", strings.Join(missing, ", "))
	}

	info, err := distro.Detect()
	if err != nil {
		return fmt.Errorf("cannot update on this system: %w", err)
	}

	if cfg.Ref != "" {
		fmt.Fprintf(os.Stderr, "⚠  Config pins ref %q; update follows release tags and will move the checkout.\n", cfg.Ref)
	}

	spinner := output.NewSpinner("Fetching releases...")
	if err := gitrepo.Fetch(ctx, srcDir); err != nil {
		spinner.Stop()
		return err
	}

	currentTag, err := gitrepo.CurrentTag(srcDir)
	if err != nil {
		// No tag reachable from HEAD; treat like a fresh checkout.
		currentTag = ""
	}

	remoteTag, err := gitrepo.LatestRemoteTag(ctx, cfg.RepoURL)
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to find the newest release: %w", err)
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ Newest release is %s", remoteTag))

	dirty, err := gitrepo.IsDirty(srcDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not check for local source changes: %v\n", err)
		dirty = false
	}

	backups, err := newBackupManager(cfg, st)
	if err != nil {
		return err
	}
	verification := backups.VerifySettings()

	assessment, err := plan.Assess(plan.Input{
		CurrentTag:      currentTag,
		RemoteTag:       remoteTag,
		Force:           updateFlagForce,
		TreeDirty:       dirty,
		SettingsOK:      verification.OK,
		MissingSettings: verification.Missing,
		HaveBackups:     backups.Latest() != "",
	})
	if err != nil {
		return err
	}

	if assessment.Action == plan.ActionUpToDate {
		fmt.Printf("✓ Perch %s is up to date.\n", currentTag)
		warnIfSelfStale(ctx, cfg.ManifestURL)
		return nil
	}

	for _, warning := range assessment.Warnings {
		fmt.Printf("⚠  %s\n", warning)
	}

	switch assessment.Action {
	case plan.ActionUpdate:
		if currentTag == "" {
			fmt.Printf("Installing %s\n", assessment.Target)
		} else {
			fmt.Printf("Update available: %s → %s\n", currentTag, assessment.Target)
		}
		if !updateFlagYes && !confirm(fmt.Sprintf("Update to %s?", assessment.Target)) {
			fmt.Println("Update cancelled.")
			return nil
		}
	case plan.ActionReinstall:
		if !updateFlagYes && !confirm(fmt.Sprintf("Reinstall Perch %s?", assessment.Target)) {
			fmt.Println("Update cancelled.")
			return nil
		}
	}

	if assessment.Requires(plan.ChoiceStashDirty) {
		if !updateFlagStash && !updateFlagYes {
			fmt.Println("The source tree has local changes.")
			if !confirm("Stash them and continue?") {
				fmt.Println("Update cancelled.")
				return nil
			}
		}
		if err := gitrepo.Stash(ctx, srcDir); err != nil {
			return fmt.Errorf("failed to stash local changes: %w", err)
		}
		fmt.Println("✓ Local changes stashed")
	}

	if _, err := preFlightBackup(backups, "pre-update", updateFlagYes); err != nil {
		return err
	}

	fail := func(err error) error {
		recordEvent(st, store.KindUpdate, assessment.Target, store.OutcomeFailed, err.Error())
		return err
	}

	if err := gitrepo.Checkout(ctx, srcDir, assessment.Target); err != nil {
		return fail(err)
	}
	fmt.Printf("✓ Checked out %s\n", assessment.Target)

	if err := buildAndInstall(ctx, info.Family, srcDir, assessment.Target); err != nil {
		return fail(err)
	}

	checkSettingsAfterUpdate(st, backups)

	detail := "fresh checkout"
	if currentTag != "" {
		detail = "from " + currentTag
	}
	recordEvent(st, store.KindUpdate, assessment.Target, store.OutcomeOK, detail)

	fmt.Printf("\n✓ Perch updated to %s\n", assessment.Target)

	warnIfSelfStale(ctx, cfg.ManifestURL)
	return nil
}

// checkSettingsAfterUpdate re-verifies the settings directory once the
// new version is on disk and offers to roll back to the newest backup
// when critical files disappeared.
func checkSettingsAfterUpdate(st *store.Store, backups *backup.Manager) {
	v := backups.VerifySettings()
	if v.OK {
		fmt.Println("✓ Settings verified")
		return
	}

	fmt.Printf("✗ Settings are missing critical files after the update: %s\n", strings.Join(v.Missing, ", "))

	latest := backups.Latest()
	if latest == "" {
		fmt.Println("  No backups exist to restore from.")
		fmt.Println("  Perch will recreate default settings on next launch.")
		return
	}

	name := filepath.Base(latest)
	if !updateFlagYes && !confirm(fmt.Sprintf("Restore settings from %s?", name)) {
		fmt.Printf("  Restore later with: perchup restore %s\n", name)
		return
	}

	if err := backups.Restore(latest); err != nil {
		recordEvent(st, store.KindRestore, "", store.OutcomeFailed, err.Error())
		fmt.Printf("✗ Restore failed: %v\n", err)
		return
	}
	recordEvent(st, store.KindRestore, "", store.OutcomeOK, "post-update: "+latest)
	fmt.Printf("✓ Settings restored from %s\n", name)
}

// warnIfSelfStale checks the release manifest for a newer perchup.
// Best-effort: network problems stay silent, a dev build never nags.
func warnIfSelfStale(ctx context.Context, manifestURL string) {
	if Version == "dev" || manifestURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := manifest.Fetch(ctx, manifestURL)
	if err != nil {
		return
	}
	newer, err := version.Newer(m.Version, Version)
	if err != nil || !newer {
		return
	}

	fmt.Printf("\n⚠  perchup %s is available (you are running %s)\n", m.Version, Version)
	if m.URL != "" {
		fmt.Printf("   %s\n", m.URL)
	}
}
