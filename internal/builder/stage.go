package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// desktopEntryCandidates are the places upstream has kept its .desktop
// file across releases.
var desktopEntryCandidates = []string{
	"assets/perch.desktop",
	"data/perch.desktop",
	"perch.desktop",
}

var iconCandidates = []string{
	"assets/perch.svg",
	"data/perch.svg",
}

// Stage installs the built checkout into stageDir laid out as a root
// filesystem (usr/bin, usr/share, ...). The stage directory is cleared
// first so stale files from a previous version never leak into the
// package.
func Stage(ctx context.Context, repoDir, stageDir string) error {
	system, err := DetectSystem(repoDir)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(stageDir); err != nil {
		return fmt.Errorf("failed to clear stage directory: %w", err)
	}
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create stage directory: %w", err)
	}

	switch system {
	case SystemJust:
		cmd := exec.CommandContext(ctx, "just", "rootdir="+stageDir, "prefix=/usr", "install")
		cmd.Dir = repoDir
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("just install failed: %w (output: %s)", err, tail(output, 2000))
		}
	case SystemMake:
		cmd := exec.CommandContext(ctx, "make", "install", "DESTDIR="+stageDir)
		cmd.Dir = repoDir
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("make install failed: %w (output: %s)", err, tail(output, 2000))
		}
	case SystemCargo:
		if err := stageCargo(repoDir, stageDir); err != nil {
			return err
		}
	}
	return nil
}

// stageCargo lays out a plain cargo project by hand: the release binary
// plus the desktop entry and icon when the checkout ships them.
func stageCargo(repoDir, stageDir string) error {
	binary := filepath.Join(repoDir, "target", "release", "perch")
	if _, err := os.Stat(binary); err != nil {
		return fmt.Errorf("release binary not found at %s (did the build run?): %w", binary, err)
	}
	if err := copyFile(binary, filepath.Join(stageDir, "usr", "bin", "perch"), 0o755); err != nil {
		return fmt.Errorf("failed to stage binary: %w", err)
	}

	for _, rel := range desktopEntryCandidates {
		src := filepath.Join(repoDir, rel)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(stageDir, "usr", "share", "applications", "perch.desktop")
		if err := copyFile(src, dst, 0o644); err != nil {
			return fmt.Errorf("failed to stage desktop entry: %w", err)
		}
		break
	}

	for _, rel := range iconCandidates {
		src := filepath.Join(repoDir, rel)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(stageDir, "usr", "share", "icons", "hicolor", "scalable", "apps", "perch.svg")
		if err := copyFile(src, dst, 0o644); err != nil {
			return fmt.Errorf("failed to stage icon: %w", err)
		}
		break
	}

	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
