// Package manifest records what was deployed into a project: one checksum
// entry per file, grouped by category, for later drift auditing.
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// DateLayout is the format of deployedAt values.
const DateLayout = "2006-01-02"

// Entry describes one deployed file.
type Entry struct {
	Checksum   string `json:"checksum"`
	DeployedAt string `json:"deployedAt"`
	Source     string `json:"source"`
	Extensible bool   `json:"extensible"`
}

// Manifest is the project-local deployment record.
//
// On disk it is a single JSON object: "version" and "deployedAt" at the top
// level, then one object per category keyed by the file's path relative to
// the category destination.
type Manifest struct {
	Version    string
	DeployedAt string
	Categories map[string]map[string]Entry
}

// File is a flattened manifest entry.
type File struct {
	Category string
	Path     string
	Entry
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{Categories: make(map[string]map[string]Entry)}
}

// Checksum returns the lowercase hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Record stores or replaces the entry for path within category.
func (m *Manifest) Record(category, path string, e Entry) {
	if m.Categories == nil {
		m.Categories = make(map[string]map[string]Entry)
	}
	files, ok := m.Categories[category]
	if !ok {
		files = make(map[string]Entry)
		m.Categories[category] = files
	}
	files[path] = e
}

// Lookup returns the entry for path within category.
func (m *Manifest) Lookup(category, path string) (Entry, bool) {
	e, ok := m.Categories[category][path]
	return e, ok
}

// Remove deletes the entry for path within category. Empty categories are
// dropped.
func (m *Manifest) Remove(category, path string) {
	files, ok := m.Categories[category]
	if !ok {
		return
	}
	delete(files, path)
	if len(files) == 0 {
		delete(m.Categories, category)
	}
}

// Files returns every entry sorted by category, then path.
func (m *Manifest) Files() []File {
	var out []File
	for cat, files := range m.Categories {
		for path, e := range files {
			out = append(out, File{Category: cat, Path: path, Entry: e})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Len returns the total number of entries.
func (m *Manifest) Len() int {
	n := 0
	for _, files := range m.Categories {
		n += len(files)
	}
	return n
}

// reservedKeys are top-level keys that are not categories.
var reservedKeys = map[string]bool{"version": true, "deployedAt": true}

// MarshalJSON writes version and deployedAt first, then categories in
// name order.
func (m Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if err := writeField("version", m.Version); err != nil {
		return nil, err
	}
	if err := writeField("deployedAt", m.DeployedAt); err != nil {
		return nil, err
	}

	cats := make([]string, 0, len(m.Categories))
	for cat := range m.Categories {
		if reservedKeys[cat] {
			return nil, fmt.Errorf("category name %q is reserved", cat)
		}
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		if err := writeField(cat, m.Categories[cat]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat on-disk layout. Top-level values that are
// not objects, other than version and deployedAt, are ignored.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Manifest{Categories: make(map[string]map[string]Entry)}
	for key, val := range raw {
		switch key {
		case "version":
			if err := json.Unmarshal(val, &out.Version); err != nil {
				return fmt.Errorf("decoding version: %w", err)
			}
		case "deployedAt":
			if err := json.Unmarshal(val, &out.DeployedAt); err != nil {
				return fmt.Errorf("decoding deployedAt: %w", err)
			}
		default:
			trimmed := bytes.TrimSpace(val)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				continue
			}
			var files map[string]Entry
			if err := json.Unmarshal(trimmed, &files); err != nil {
				return fmt.Errorf("decoding category %q: %w", key, err)
			}
			out.Categories[key] = files
		}
	}

	*m = out
	return nil
}
