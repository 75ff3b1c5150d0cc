package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/fsutil"
)

// ManifestFile is the manifest's file name inside the state directory.
const ManifestFile = "manifest.json"

// Store defines the persistence interface for manifests.
type Store interface {
	Load(projectRoot string) (*Manifest, error)
	Save(projectRoot string, m *Manifest) error
}

// FileStore implements Store as a JSON file in the project state directory.
type FileStore struct{}

// NewFileStore creates a filesystem-backed manifest store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Path returns the absolute path to a project's manifest.json.
func Path(projectRoot string) string {
	return filepath.Join(config.StatePath(projectRoot), ManifestFile)
}

// Load reads the project manifest. A project that was never deployed
// yields an empty manifest, not an error.
func (fs *FileStore) Load(projectRoot string) (*Manifest, error) {
	data, err := os.ReadFile(Path(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest.json: %w", err)
	}
	return m, nil
}

// Save writes the manifest atomically.
func (fs *FileStore) Save(projectRoot string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	data = append(data, '\n')

	if err := fsutil.WriteFile(Path(projectRoot), data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Stamp sets the run-level version and date.
func (m *Manifest) Stamp(version string) {
	m.Version = version
	m.DeployedAt = timeNow().UTC().Format(DateLayout)
}

// NewEntry builds an entry for a file deployed now.
func NewEntry(checksum, source string, extensible bool) Entry {
	return Entry{
		Checksum:   checksum,
		DeployedAt: timeNow().UTC().Format(DateLayout),
		Source:     source,
		Extensible: extensible,
	}
}
