package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath string

	// RootCmd is the root command for perchup
	RootCmd = &cobra.Command{
		Use:   "perchup",
		Short: "Install and update the Perch agent workbench from source",
		Long: `perchup builds Perch from its source repository, installs it through
your distribution's package manager, and protects your settings with
automatic backups before every change.

Settings protection:
Perch keeps its agent database under ~/.config/perch/data/. perchup
backs that directory up before each install and update, verifies the
copy, and can restore any backup later. Nothing is updated over
unprotected settings without asking you first.

Quick Start:
  1. perchup install
  2. perchup watch --daemon  # optional: back up settings as they change
  3. perchup update          # whenever a new release lands

Examples:
  # Install the latest Perch release
  perchup install

  # Update to the newest tag, backing up settings first
  perchup update

  # Take a manual settings backup
  perchup backup --reason "before experimenting"

  # List backups and restore the newest one
  perchup backup --list
  perchup restore latest

  # Check what is installed and protected
  perchup status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbFile, _ := getDBPath()
			if _, err := os.Stat(dbFile); os.IsNotExist(err) {
				fmt.Println("perchup: source installer and updater for Perch")
				fmt.Println()
				fmt.Println("Run 'perchup install' to get started.")
				fmt.Println("Run 'perchup --help' for the full reference.")
			} else {
				fmt.Println("perchup: source installer and updater for Perch")
				fmt.Println()
				fmt.Println("Tip: Run 'perchup status' to see what is installed.")
				fmt.Println("     Run 'perchup update' to pick up the newest release.")
				fmt.Println("     Run 'perchup --help' for all commands.")
			}
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (default: ~/.perchup/perchup.db)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getStateDir returns ~/.perchup, creating it if needed. Everything
// perchup writes outside the settings backups lives under it.
func getStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	stateDir := filepath.Join(home, ".perchup")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create perchup directory: %w", err)
	}

	return stateDir, nil
}

// getDBPath returns the history database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	stateDir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "perchup.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	stateDir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	stateDir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "watch.log"), nil
}

// getSrcDir returns the Perch source checkout path
func getSrcDir() (string, error) {
	stateDir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "src"), nil
}

// getStageDir returns the staging tree used for packaging
func getStageDir() (string, error) {
	stateDir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "stage"), nil
}
