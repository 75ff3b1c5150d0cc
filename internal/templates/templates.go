// Package templates provides the framework template files that get deployed
// into projects, either from the bundle compiled into the binary or from a
// framework checkout on disk.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

//go:embed framework
var bundle embed.FS

// VersionFile holds the framework version at the root of a source.
const VersionFile = "VERSION"

// DevVersion is reported when a source has no VERSION file.
const DevVersion = "dev"

// Source is a read-only tree of framework template files addressed by
// slash-separated relative paths.
type Source interface {
	// Name describes the source for logs and reports.
	Name() string
	// Version returns the framework version of the source.
	Version() string
	// Glob returns the files matching a doublestar pattern, sorted.
	Glob(pattern string) ([]string, error)
	// Read returns the content of one file.
	Read(rel string) ([]byte, error)
}

// FS is a Source backed by an fs.FS.
type FS struct {
	name string
	root string
	fsys fs.FS
}

// Embedded returns the framework bundle compiled into the binary.
func Embedded() *FS {
	sub, err := fs.Sub(bundle, "framework")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(fmt.Sprintf("templates: embedded bundle: %v", err))
	}
	return &FS{name: "embedded", fsys: sub}
}

// Dir returns a source reading templates from a directory on disk.
func Dir(dir string) (*FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening template source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template source %s is not a directory", dir)
	}
	return &FS{name: dir, root: dir, fsys: os.DirFS(dir)}, nil
}

// FromFS wraps an arbitrary file system, mainly for tests.
func FromFS(name string, fsys fs.FS) *FS {
	return &FS{name: name, fsys: fsys}
}

// Name implements Source.
func (s *FS) Name() string { return s.name }

// Root returns the directory on disk backing the source, or "" when the
// source is not a directory.
func (s *FS) Root() string { return s.root }

// Version implements Source.
func (s *FS) Version() string {
	data, err := fs.ReadFile(s.fsys, VersionFile)
	if err != nil {
		return DevVersion
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return DevVersion
	}
	return v
}

// Glob implements Source. Directories are never returned.
func (s *FS) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(s.fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %q in %s: %w", pattern, s.name, err)
	}

	files := matches[:0]
	for _, m := range matches {
		info, err := fs.Stat(s.fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// Read implements Source.
func (s *FS) Read(rel string) ([]byte, error) {
	clean := path.Clean(strings.TrimPrefix(rel, "./"))
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid template path %q", rel)
	}
	data, err := fs.ReadFile(s.fsys, clean)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", clean, err)
	}
	return data, nil
}

// Open resolves the configured source: a directory when dir is set,
// otherwise the embedded bundle.
func Open(dir string) (Source, error) {
	if dir == "" {
		return Embedded(), nil
	}
	return Dir(dir)
}
