// Package testutil provides helpers for tests that inspect cache directories.
package testutil

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// Payload returns n bytes of fill.
func Payload(n int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, n)
}

// WriteFile writes data to root/rel, creating parent directories.
// It returns the full path.
func WriteFile(tb testing.TB, root, rel string, data []byte) string {
	tb.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Files returns the slash-separated paths of all regular files under root,
// relative to root and sorted. A missing root yields nil.
func Files(tb testing.TB, root string) []string {
	tb.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		tb.Fatalf("walk %s: %v", root, err)
	}
	slices.Sort(files)
	return files
}
