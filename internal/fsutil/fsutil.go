// Package fsutil provides the filesystem primitives the backup and
// restore flows are built on: recursive overlay copy, existence and
// size checks, and tolerant directory listing.
package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyTree recursively copies the contents of src into dst, creating
// dst if needed. Existing files under dst are overwritten; entries
// present in dst but not in src are left alone (overlay semantics).
// Symlinks are recreated, not followed. The first non-recoverable I/O
// error aborts the copy.
func CopyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("source %s is not a directory", src)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("create destination %s: %w", dst, err)
	}

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case entry.Type()&os.ModeSymlink != 0:
			return copySymlink(path, target)
		case entry.IsDir():
			info, err := entry.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			return nil
		default:
			return copyFile(path, target)
		}
	})
}

// copyFile copies a regular file, preserving its permission bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	// OpenFile only applies the mode on create; an overwritten file
	// keeps its old bits otherwise.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	return nil
}

// copySymlink recreates a symlink at dst pointing at src's target,
// replacing whatever was there.
func copySymlink(src, dst string) error {
	linkTarget, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", src, err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	if err := os.Symlink(linkTarget, dst); err != nil {
		return fmt.Errorf("symlink %s: %w", dst, err)
	}
	return nil
}

// PathExists reports whether path exists, following symlinks.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileSize returns the size of the file at path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ListDirEntries returns the entries under path. A missing path yields
// an empty listing rather than an error so callers can treat "nothing
// there yet" and "empty" the same way.
func ListDirEntries(path string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	return entries, nil
}

// TreeSize returns the total size in bytes of all regular files under
// root. Unreadable entries are skipped.
func TreeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
