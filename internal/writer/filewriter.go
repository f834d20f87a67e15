package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives one complete output artifact.
type Sink interface {
	WriteAll(buf []byte) error
}

// FileWriter writes output bytes to a filesystem path atomically, so a
// failed run never leaves a partial file behind.
type FileWriter struct {
	Path string
	Perm os.FileMode // 0 selects 0644
}

// WriteAll writes buf to the configured path atomically via temp file + rename.
func (w *FileWriter) WriteAll(buf []byte) error {
	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".fdtkit-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, writeErr := tmpFile.Write(buf); writeErr != nil {
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if syncErr := tmpFile.Sync(); syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	tmpFile = nil

	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if chmodErr := os.Chmod(tmpPath, perm); chmodErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", chmodErr)
	}
	if renameErr := os.Rename(tmpPath, w.Path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", renameErr)
	}
	return nil
}
