// Package builder compiles a Perch source checkout and turns the result
// into something installable, either a Debian package or a staged tree
// copied straight under /usr/local.
package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// System identifies the build system found in a source checkout.
type System string

const (
	SystemJust  System = "just"
	SystemMake  System = "make"
	SystemCargo System = "cargo"
)

// DetectSystem inspects a checkout and picks the build entry point.
// justfile wins over Makefile wins over Cargo.toml, matching how
// upstream structures its releases.
func DetectSystem(dir string) (System, error) {
	if _, err := os.Stat(filepath.Join(dir, "justfile")); err == nil {
		return SystemJust, nil
	}
	if _, err := os.Stat(filepath.Join(dir, "Makefile")); err == nil {
		return SystemMake, nil
	}
	if _, err := os.Stat(filepath.Join(dir, "Cargo.toml")); err == nil {
		return SystemCargo, nil
	}
	return "", fmt.Errorf("no recognized build system in %s (expected justfile, Makefile, or Cargo.toml)", dir)
}

// Build runs a release build in dir using the detected build system.
func Build(ctx context.Context, dir string) error {
	system, err := DetectSystem(dir)
	if err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch system {
	case SystemJust:
		cmd = exec.CommandContext(ctx, "just", "build-release")
	case SystemMake:
		cmd = exec.CommandContext(ctx, "make")
	case SystemCargo:
		cmd = exec.CommandContext(ctx, "cargo", "build", "--release", "--locked")
	}
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s build failed: %w (output: %s)", system, err, tail(output, 2000))
	}
	return nil
}

// tail keeps the last n bytes of build output. Compiler output can run
// to megabytes and only the end carries the actual error.
func tail(output []byte, n int) string {
	s := strings.TrimSpace(string(output))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
