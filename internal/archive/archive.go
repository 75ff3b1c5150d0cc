// Package archive keeps timestamped copies of deployed files that are about
// to be overwritten after rogue edits were detected.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/fsutil"
)

const (
	// ArchiveDir is the subdirectory of the state directory holding archives.
	ArchiveDir = "archive"
	// ExtensibleDir groups archives of extensible files.
	ExtensibleDir = "extensible"

	// Reason is recorded in every archive header.
	Reason = "Rogue edits detected outside extension blocks"

	// timestampLayout is ISO-8601 UTC with millisecond precision.
	timestampLayout = "2006-01-02T15:04:05.000Z"
	dateLayout      = "2006-01-02"
)

// Archiver writes archive copies under <stateDir>/archive/extensible/.
type Archiver struct {
	dir string
}

// New returns an archiver rooted at stateDir.
func New(stateDir string) *Archiver {
	return &Archiver{dir: Path(stateDir)}
}

// Path returns the archive directory for stateDir.
func Path(stateDir string) string {
	return filepath.Join(stateDir, ArchiveDir, ExtensibleDir)
}

// Dir returns the directory archives are written to.
func (a *Archiver) Dir() string {
	return a.dir
}

// Reset removes previous archives and recreates an empty directory. It is
// called once at the start of a deployment run.
func (a *Archiver) Reset() error {
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("clearing archive directory: %w", err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	return nil
}

// Archive stores content under a dated name derived from originalPath and
// returns the path written. Same-day collisions get a -1, -2, ... suffix.
func (a *Archiver) Archive(originalPath, content string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	now := timeNow().UTC()
	base, ext := splitName(filepath.Base(originalPath))
	stem := base + "-" + now.Format(dateLayout)

	path := filepath.Join(a.dir, stem+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		} else if err != nil {
			return "", fmt.Errorf("checking archive path: %w", err)
		}
		path = filepath.Join(a.dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}

	if err := fsutil.WriteFile(path, []byte(Header(now, originalPath)+content)); err != nil {
		return "", fmt.Errorf("writing archive %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// Header returns the provenance lines prepended to an archived copy.
func Header(at time.Time, originalPath string) string {
	return fmt.Sprintf("<!-- ARCHIVED: %s -->\n<!-- ORIGINAL: %s -->\n<!-- REASON: %s -->\n",
		at.UTC().Format(timestampLayout), originalPath, Reason)
}

// splitName splits a file name into stem and extension. Dotfiles without a
// further extension keep their full name as the stem.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}
