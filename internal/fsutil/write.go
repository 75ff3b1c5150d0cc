// Package fsutil holds the file-writing helpers shared by the stores.
package fsutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FilePerm is applied to files created by WriteFile.
const FilePerm = 0o644

// WriteFile replaces path with data atomically, creating parent
// directories as needed. Readers see either the old or the new content.
// Existing files keep their mode; new files get FilePerm.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}

	// atomic.WriteFile leaves new files with the temp file's 0600 mode.
	if created {
		if err := os.Chmod(path, FilePerm); err != nil {
			return fmt.Errorf("setting file permissions: %w", err)
		}
	}
	return nil
}
