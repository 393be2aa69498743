// Package fileops performs the filesystem operations behind cache entries.
package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// tempPattern names in-flight writes. A leading dot and a non-numeric prefix
// keep them from parsing as thumbnail names if a write is interrupted.
const tempPattern = ".thumb-*"

// WriteFile writes data to path via a temp file and rename.
// If the parent directory is missing it is created with dirPerm and the
// write is retried exactly once.
func WriteFile(path string, data []byte, dirPerm os.FileMode) error {
	err := writeAtomic(path, data)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), dirPerm); mkErr != nil {
		return fmt.Errorf("create cache dir: %w", mkErr)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Remove deletes path. A file that is already gone is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
