package util

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const tmpSuffix = ".hotfolder.tmp"

// AtomicWrite streams r into a temp file next to dst and renames it into
// place, replacing any existing entry. It returns the number of bytes written.
func AtomicWrite(dst string, r io.Reader, perm fs.FileMode) (int64, error) {
	tmp := dst + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to write: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to close temp file: %w", err)
	}

	// umask may have narrowed the bits passed to OpenFile
	if err := os.Chmod(tmp, perm); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to set mode: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to rename: %w", err)
	}

	return n, nil
}

func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsWithin reports whether path equals dir or lies below it.
func IsWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !startsWithParent(rel))
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
