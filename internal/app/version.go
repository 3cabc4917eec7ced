package app

import (
	"context"
	"fmt"
	"time"

	"github.com/perchlabs/perchup/internal/manifest"
	"github.com/perchlabs/perchup/internal/version"
	"github.com/spf13/cobra"
)

// Version is the perchup release, stamped at build time via
// -ldflags "-X github.com/perchlabs/perchup/internal/app.Version=v1.2.3".
var Version = "dev"

var versionFlagCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the perchup version",
	Long: `Print the running perchup version.

With --check, the release manifest is consulted to see whether a newer
perchup is available. This checks perchup itself, not Perch; use
'perchup update' for Perch releases.`,
	Example: `  perchup version
  perchup version --check`,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionFlagCheck, "check", false, "check the release manifest for a newer perchup")

	RootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("perchup %s\n", Version)

	if !versionFlagCheck {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := manifest.Fetch(ctx, cfg.ManifestURL)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	fmt.Printf("Latest release: %s\n", m.Version)
	if m.Notes != "" {
		fmt.Printf("  %s\n", m.Notes)
	}

	if Version == "dev" {
		fmt.Println("You are running a development build.")
		return nil
	}

	newer, err := version.Newer(m.Version, Version)
	if err != nil {
		return fmt.Errorf("cannot compare %q against %q: %w", m.Version, Version, err)
	}
	if newer {
		fmt.Println("⚠ A newer perchup is available.")
		if m.URL != "" {
			fmt.Printf("  %s\n", m.URL)
		}
	} else {
		fmt.Println("✓ perchup is up to date.")
	}
	return nil
}
