package distro

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// buildDeps lists the packages Perch needs to compile, per family. The
// Rust toolchain comes from the distro rather than rustup so removal
// stays the package manager's problem.
var buildDeps = map[Family][]string{
	FamilyApt: {
		"git", "curl", "build-essential", "pkg-config",
		"libssl-dev", "libsqlite3-dev", "libgtk-3-dev",
		"desktop-file-utils", "cargo", "rustc",
	},
	FamilyDnf: {
		"git", "curl", "gcc", "gcc-c++", "make", "pkgconf-pkg-config",
		"openssl-devel", "sqlite-devel", "gtk3-devel",
		"desktop-file-utils", "cargo", "rust",
	},
	FamilyPacman: {
		"git", "curl", "base-devel", "pkgconf",
		"openssl", "sqlite", "gtk3",
		"desktop-file-utils", "rust",
	},
}

// requiredTools are the commands the install and update flows invoke
// directly; each must resolve on PATH after InstallDeps.
var requiredTools = []string{"git", "curl", "cargo", "cc", "pkg-config"}

// BuildDeps returns the build-dependency package list for a family.
func BuildDeps(family Family) []string {
	return buildDeps[family]
}

// MissingTools returns the required tools that do not resolve on PATH.
func MissingTools() []string {
	var missing []string
	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// InstallDeps installs the build dependencies for the family through
// its package manager, prefixing sudo when not already root.
func InstallDeps(ctx context.Context, family Family) error {
	deps := buildDeps[family]
	if len(deps) == 0 {
		return fmt.Errorf("no dependency list for family %q", family)
	}

	var args []string
	switch family {
	case FamilyApt:
		args = append([]string{"apt-get", "install", "-y", "--no-install-recommends"}, deps...)
	case FamilyDnf:
		args = append([]string{"dnf", "install", "-y"}, deps...)
	case FamilyPacman:
		args = append([]string{"pacman", "-S", "--needed", "--noconfirm"}, deps...)
	default:
		return fmt.Errorf("unsupported family %q", family)
	}

	return runPrivileged(ctx, args...)
}

// RefreshPackageIndex updates the package manager's index where the
// family needs that before installing (apt). Others resolve at install
// time.
func RefreshPackageIndex(ctx context.Context, family Family) error {
	if family != FamilyApt {
		return nil
	}
	return runPrivileged(ctx, "apt-get", "update")
}

// runPrivileged runs a system-mutating command, via sudo unless
// already root.
func runPrivileged(ctx context.Context, args ...string) error {
	if os.Geteuid() != 0 {
		args = append([]string{"sudo"}, args...)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", args[0], err, string(output))
	}
	return nil
}
