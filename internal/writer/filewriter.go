// Package writer puts extracted artifacts on the native filesystem.
package writer

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileWriter writes a file atomically: readers of Path see either the old
// contents or the complete new ones.
type FileWriter struct {
	Fs   afero.Fs
	Path string
}

// Write writes buf to a temp file next to Path, syncs it and renames it over
// Path. On the OS filesystem the parent directory is synced as well so the
// rename survives a crash.
func (w *FileWriter) Write(buf []byte) error {
	dir := filepath.Dir(w.Path)
	if err := w.Fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmpFile, err := afero.TempFile(w.Fs, dir, "."+filepath.Base(w.Path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = w.Fs.Remove(tmpPath)
		}
	}()

	if _, writeErr := tmpFile.Write(buf); writeErr != nil {
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if syncErr := syncFile(tmpFile); syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		tmpFile = nil
		_ = w.Fs.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	tmpFile = nil

	if renameErr := w.Fs.Rename(tmpPath, w.Path); renameErr != nil {
		_ = w.Fs.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", renameErr)
	}
	if _, ok := w.Fs.(*afero.OsFs); ok {
		if err := syncDir(dir); err != nil {
			return fmt.Errorf("sync directory: %w", err)
		}
	}
	return nil
}
