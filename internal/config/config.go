// Package config defines the project configuration for IDPF deployments
// and its on-disk store at .idpf/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/fsutil"
)

const (
	// StateDir is the project-local directory holding IDPF state.
	StateDir = ".idpf"
	// ConfigFile is the configuration file name inside StateDir.
	ConfigFile = "config.yaml"
)

// ErrNotInitialized is returned by Load when the project has no config file.
var ErrNotInitialized = errors.New("project not initialized: run 'idpf init' first")

// Category maps a group of template files onto a project directory.
type Category struct {
	Name string `yaml:"name"`
	// Source is a doublestar pattern matched inside the template source.
	Source string `yaml:"source"`
	// Destination is relative to the project root.
	Destination string `yaml:"destination"`
}

// Config is the project configuration.
type Config struct {
	// FrameworkVersion overrides the template source's VERSION file.
	FrameworkVersion string `yaml:"framework_version,omitempty"`
	// Source is a framework template directory. Empty means the embedded
	// bundle.
	Source          string     `yaml:"source,omitempty"`
	ProtectedFields []string   `yaml:"protected_fields"`
	LogLevel        string     `yaml:"log_level"`
	History         bool       `yaml:"history"`
	Categories      []Category `yaml:"categories"`
}

// Log levels accepted in LogLevel.
var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// DefaultConfig returns the configuration used when a project has none.
func DefaultConfig() *Config {
	return &Config{
		ProtectedFields: []string{"version"},
		LogLevel:        "info",
		History:         true,
		Categories: []Category{
			{Name: "rules", Source: "rules/**/*.md", Destination: ".claude/rules"},
			{Name: "commands", Source: "commands/**/*.md", Destination: ".claude/commands"},
			{Name: "instructions", Source: "CLAUDE.md", Destination: "."},
		},
	}
}

// EffectiveVersion returns FrameworkVersion when set, else sourceVersion.
func (c *Config) EffectiveVersion(sourceVersion string) string {
	if c.FrameworkVersion != "" {
		return c.FrameworkVersion
	}
	return sourceVersion
}

// Validate checks the configuration for values the deployer cannot use.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return errors.New("at least one category is required")
	}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		switch {
		case cat.Name == "":
			return fmt.Errorf("category %d: name is required", i)
		case cat.Name == "version" || cat.Name == "deployedAt":
			return fmt.Errorf("category %q: name is reserved", cat.Name)
		case seen[cat.Name]:
			return fmt.Errorf("category %q: duplicate name", cat.Name)
		case cat.Source == "":
			return fmt.Errorf("category %q: source pattern is required", cat.Name)
		case cat.Destination == "":
			return fmt.Errorf("category %q: destination is required", cat.Name)
		}
		seen[cat.Name] = true

		dest := filepath.ToSlash(cat.Destination)
		if path.IsAbs(dest) || filepath.IsAbs(cat.Destination) {
			return fmt.Errorf("category %q: destination must be relative to the project root", cat.Name)
		}
		if clean := path.Clean(dest); clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("category %q: destination escapes the project root", cat.Name)
		}
	}
	return nil
}

// Store defines the persistence interface for project configuration.
type Store interface {
	Load(projectRoot string) (*Config, error)
	Save(projectRoot string, cfg *Config) error
}

// FileStore implements Store using .idpf/config.yaml.
type FileStore struct{}

// NewFileStore creates a filesystem-backed config store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// StatePath returns the absolute path to the .idpf/ directory.
func StatePath(projectRoot string) string {
	return filepath.Join(projectRoot, StateDir)
}

// ConfigPath returns the absolute path to .idpf/config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(StatePath(projectRoot), ConfigFile)
}

// Exists reports whether the project has a config file.
func Exists(projectRoot string) bool {
	_, err := os.Stat(ConfigPath(projectRoot))
	return err == nil
}

// Load reads and validates the project config. Fields absent from the file
// keep their default values.
func (fs *FileStore) Load(projectRoot string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	return cfg, nil
}

// Save writes the config atomically, creating .idpf/ when needed.
func (fs *FileStore) Save(projectRoot string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := fsutil.WriteFile(ConfigPath(projectRoot), data); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadOrDefault returns the stored config, or DefaultConfig when the
// project was never initialized.
func LoadOrDefault(store Store, projectRoot string) (*Config, error) {
	cfg, err := store.Load(projectRoot)
	if errors.Is(err, ErrNotInitialized) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// FindProjectRoot walks up from dir to the nearest directory containing
// StateDir. It returns dir itself when no ancestor has one.
func FindProjectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for cur := abs; ; {
		if info, err := os.Stat(StatePath(cur)); err == nil && info.IsDir() {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs
		}
		cur = parent
	}
}
