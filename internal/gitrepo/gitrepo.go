// Package gitrepo wraps the git CLI operations the install and update
// flows need. Everything shells out to the system git; perchup never
// embeds its own version-control implementation.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Clone clones url into dir, tags included.
func Clone(ctx context.Context, url, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", url, dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s failed: %w (output: %s)", url, err, trimOutput(output))
	}
	return nil
}

// Fetch updates refs and tags in an existing clone.
func Fetch(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "fetch", "--tags", "--prune")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git fetch failed: %w (output: %s)", err, trimOutput(output))
	}
	return nil
}

// Checkout checks out a ref (tag, branch, or commit) in dir.
func Checkout(ctx context.Context, dir, ref string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "checkout", ref)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git checkout %s failed: %w (output: %s)", ref, err, trimOutput(output))
	}
	return nil
}

// IsRepo reports whether dir looks like a git work tree.
func IsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// CurrentTag returns the tag the clone currently sits on (the nearest
// tag reachable from HEAD).
func CurrentTag(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "describe", "--tags", "--abbrev=0")
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git describe failed: %w (stderr: %s)", err, trimOutput(exitErr.Stderr))
		}
		return "", fmt.Errorf("git describe failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// IsDirty reports whether the work tree has uncommitted changes.
func IsDirty(dir string) (bool, error) {
	cmd := exec.Command("git", "-C", dir, "status", "--porcelain")
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// Stash saves local modifications, untracked files included, so a
// checkout can proceed on a dirty tree.
func Stash(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "stash", "--include-untracked")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git stash failed: %w (output: %s)", err, trimOutput(output))
	}
	return nil
}

// LatestRemoteTag asks the remote for its newest tag without cloning.
// The tag string is returned as-is; deciding whether it is a valid
// release identifier is the caller's job.
func LatestRemoteTag(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-remote", "--tags", "--refs", "--sort=-version:refname", url)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git ls-remote %s failed: %w (stderr: %s)", url, err, trimOutput(exitErr.Stderr))
		}
		return "", fmt.Errorf("git ls-remote %s failed: %w", url, err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if tag, ok := strings.CutPrefix(fields[1], "refs/tags/"); ok {
			return tag, nil
		}
	}
	return "", fmt.Errorf("no tags found at %s", url)
}

func trimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}
