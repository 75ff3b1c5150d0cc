// Package workspace ties a project directory to its configuration,
// template source, manifest and history. The CLI, the watcher and the MCP
// tools all go through it.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/audit"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/history"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/manifest"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/templates"
)

// Workspace is one project.
type Workspace struct {
	Root      string
	Configs   config.Store
	Manifests manifest.Store
	Logger    *zap.Logger
	// SourceDir replaces the configured template source when set.
	SourceDir string
}

// New returns a Workspace for root backed by the file stores.
func New(root string, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{
		Root:      root,
		Configs:   config.NewFileStore(),
		Manifests: manifest.NewFileStore(),
		Logger:    logger,
	}
}

// Config returns the project config, or the defaults when the project was
// never initialized.
func (w *Workspace) Config() (*config.Config, error) {
	return config.LoadOrDefault(w.Configs, w.Root)
}

// SourcePath returns the template directory in use, resolved against the
// project root, or "" for the embedded bundle.
func (w *Workspace) SourcePath(cfg *config.Config) string {
	dir := cfg.Source
	if w.SourceDir != "" {
		dir = w.SourceDir
	}
	if dir == "" {
		return ""
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(w.Root, dir)
	}
	return filepath.Clean(dir)
}

// Source opens the template source for cfg.
func (w *Workspace) Source(cfg *config.Config) (templates.Source, error) {
	return templates.Open(w.SourcePath(cfg))
}

// Deploy runs a full deployment. Unless dryRun is set or history is
// disabled in the config, the run is recorded in the history database; a
// history database that cannot be opened only costs the record.
func (w *Workspace) Deploy(ctx context.Context, dryRun bool) (*deploy.RunSummary, error) {
	cfg, err := w.Config()
	if err != nil {
		return nil, err
	}
	src, err := w.Source(cfg)
	if err != nil {
		return nil, err
	}
	plan, err := deploy.BuildPlan(w.Root, cfg, src)
	if err != nil {
		return nil, fmt.Errorf("building plan: %w", err)
	}

	opts := deploy.Options{
		DryRun:          dryRun,
		ProtectedFields: cfg.ProtectedFields,
		Manifests:       w.Manifests,
		Logger:          w.Logger,
	}
	if cfg.History && !dryRun {
		store, err := history.Open(w.Root)
		if err != nil {
			w.Logger.Warn("deployment history disabled", zap.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			opts.Recorder = store
		}
	}

	return deploy.New(w.Root, src, opts).Run(ctx, plan, cfg.EffectiveVersion(src.Version()))
}

// Audit compares the deployed files against the manifest and the source.
func (w *Workspace) Audit() (*audit.Report, error) {
	cfg, err := w.Config()
	if err != nil {
		return nil, err
	}
	src, err := w.Source(cfg)
	if err != nil {
		return nil, err
	}
	m, err := w.Manifests.Load(w.Root)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	return audit.Audit(w.Root, cfg, m, src)
}

// History opens the project's history database. The caller closes it.
func (w *Workspace) History() (*history.Store, error) {
	return history.Open(w.Root)
}

// Init writes the default config unless one exists. It reports whether a
// config was written.
func (w *Workspace) Init(sourceDir string) (bool, error) {
	if config.Exists(w.Root) {
		return false, nil
	}
	cfg := config.DefaultConfig()
	cfg.Source = sourceDir
	if err := w.Configs.Save(w.Root, cfg); err != nil {
		return false, err
	}
	return true, nil
}
