package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// runtimeDeps are the shared libraries the perch binary links against.
// dpkg resolves these at install time via apt.
var runtimeDeps = []string{
	"libc6",
	"libgtk-3-0",
	"libsqlite3-0",
	"libssl3 | libssl1.1",
}

// DebArch returns the dpkg architecture string for the running system,
// falling back to a GOARCH mapping when dpkg is unavailable.
func DebArch(ctx context.Context) string {
	output, err := exec.CommandContext(ctx, "dpkg", "--print-architecture").Output()
	if err == nil {
		if arch := strings.TrimSpace(string(output)); arch != "" {
			return arch
		}
	}
	switch runtime.GOARCH {
	case "arm64":
		return "arm64"
	default:
		return "amd64"
	}
}

// renderControl produces the DEBIAN/control contents for a staged tree.
func renderControl(version, arch string, deps []string) string {
	return fmt.Sprintf(`Package: perch
Version: %s
Section: utils
Priority: optional
Architecture: %s
Depends: %s
Maintainer: Perch Labs <packages@perchlabs.dev>
Description: Perch agent workbench
 Desktop workbench for building and running agents, packaged from the
 upstream source tree by perchup.
`, version, arch, strings.Join(deps, ", "))
}

// BuildDeb writes the package metadata into the staged tree and builds
// a .deb in outDir. Returns the package path.
func BuildDeb(ctx context.Context, stageDir, outDir, version string) (string, error) {
	debianDir := filepath.Join(stageDir, "DEBIAN")
	if err := os.MkdirAll(debianDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create DEBIAN directory: %w", err)
	}

	arch := DebArch(ctx)
	control := renderControl(version, arch, runtimeDeps)
	if err := os.WriteFile(filepath.Join(debianDir, "control"), []byte(control), 0o644); err != nil {
		return "", fmt.Errorf("failed to write control file: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	pkgFile := filepath.Join(outDir, fmt.Sprintf("perch_%s_%s.deb", version, arch))

	cmd := exec.CommandContext(ctx, "dpkg-deb", "--build", "--root-owner-group", stageDir, pkgFile)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("dpkg-deb failed: %w (output: %s)", err, tail(output, 2000))
	}
	return pkgFile, nil
}

// InstallDeb installs a built package through apt so runtime
// dependencies get resolved in the same transaction.
func InstallDeb(ctx context.Context, pkgPath string) error {
	abs, err := filepath.Abs(pkgPath)
	if err != nil {
		return err
	}
	cmd := rootCommand(ctx, "apt-get", "install", "-y", "--reinstall", abs)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("package install failed: %w (output: %s)", err, tail(output, 2000))
	}
	return nil
}

// InstallDirect copies a staged tree under /usr/local. Used on systems
// without dpkg, where no native package can be built.
func InstallDirect(ctx context.Context, stageDir string) error {
	src := filepath.Join(stageDir, "usr")
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("staged tree has no usr/ directory: %w", err)
	}
	cmd := rootCommand(ctx, "cp", "-a", src+"/.", "/usr/local/")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("direct install failed: %w (output: %s)", err, tail(output, 2000))
	}
	return nil
}

// rootCommand prefixes a command with sudo unless already running as
// root.
func rootCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	if os.Geteuid() == 0 {
		return exec.CommandContext(ctx, name, args...)
	}
	return exec.CommandContext(ctx, "sudo", append([]string{name}, args...)...)
}
