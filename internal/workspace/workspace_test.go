package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/audit"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/history"
)

// writeSource creates a minimal framework checkout.
func writeSource(t *testing.T, dir, ver string) {
	t.Helper()
	files := map[string]string{
		"VERSION":           ver + "\n",
		"rules/workflow.md": "<!-- EXTENSIBLE -->\n# Workflow\n\n<!-- USER-EXTENSION-START: notes -->\n<!-- USER-EXTENSION-END: notes -->\n",
		"CLAUDE.md":         "<!-- MANAGED -->\n# Project\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// --- Init ---

func TestInit_WritesDefaultsOnce(t *testing.T) {
	w := New(t.TempDir(), nil)

	written, err := w.Init("framework")
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := w.Configs.Load(w.Root)
	require.NoError(t, err)
	assert.Equal(t, "framework", cfg.Source)

	written, err = w.Init("other")
	require.NoError(t, err)
	assert.False(t, written, "an existing config is never overwritten")
}

// --- Source ---

func TestSourcePath(t *testing.T) {
	w := New("/work/p", nil)

	assert.Equal(t, "", w.SourcePath(&config.Config{}))
	assert.Equal(t, filepath.Join("/work/p", "vendor", "idpf"), w.SourcePath(&config.Config{Source: "vendor/idpf"}))
	assert.Equal(t, "/opt/idpf", w.SourcePath(&config.Config{Source: "/opt/idpf"}))

	w.SourceDir = "/override"
	assert.Equal(t, "/override", w.SourcePath(&config.Config{Source: "vendor/idpf"}))
}

func TestSource_MissingDirectory(t *testing.T) {
	w := New(t.TempDir(), nil)
	w.SourceDir = "does-not-exist"

	_, err := w.Deploy(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening template source")
}

// --- Deploy ---

func TestDeploy_EmbeddedRecordsHistory(t *testing.T) {
	w := New(t.TempDir(), nil)

	summary, err := w.Deploy(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, deploy.StatusCompleted, summary.Status)
	assert.NotEmpty(t, summary.Files)
	assert.FileExists(t, filepath.Join(w.Root, "CLAUDE.md"))

	store, err := w.History()
	require.NoError(t, err)
	defer store.Close()

	run, err := store.GetRun(summary.ID)
	require.NoError(t, err)
	assert.Len(t, run.Files, len(summary.Files))
}

func TestDeploy_DryRunLeavesNoTrace(t *testing.T) {
	w := New(t.TempDir(), nil)

	summary, err := w.Deploy(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)

	_, err = os.Stat(filepath.Join(w.Root, config.StateDir))
	assert.True(t, os.IsNotExist(err), "dry run must not create the state directory")
}

func TestDeploy_HistoryDisabled(t *testing.T) {
	w := New(t.TempDir(), nil)
	cfg := config.DefaultConfig()
	cfg.History = false
	require.NoError(t, w.Configs.Save(w.Root, cfg))

	_, err := w.Deploy(context.Background(), false)
	require.NoError(t, err)

	_, err = os.Stat(history.Path(w.Root))
	assert.True(t, os.IsNotExist(err))
}

func TestDeploy_DirectorySourceAndConfiguredVersion(t *testing.T) {
	root := t.TempDir()
	writeSource(t, filepath.Join(root, "framework"), "3.1.0")

	w := New(root, nil)
	cfg := config.DefaultConfig()
	cfg.Source = "framework"
	require.NoError(t, w.Configs.Save(root, cfg))

	summary, err := w.Deploy(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", summary.Version)
	assert.Equal(t, filepath.Join(root, "framework"), summary.Source)
	assert.Len(t, summary.Files, 2)

	cfg.FrameworkVersion = "3.2.0"
	require.NoError(t, w.Configs.Save(root, cfg))
	summary, err = w.Deploy(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "3.2.0", summary.Version)
}

// --- Audit ---

func TestAudit_AfterDeploy(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "framework")
	writeSource(t, src, "1.0.0")

	w := New(root, nil)
	w.SourceDir = src
	_, err := w.Deploy(context.Background(), false)
	require.NoError(t, err)

	r, err := w.Audit()
	require.NoError(t, err)
	assert.True(t, r.Clean(), "%+v", r.Entries)

	writeSource(t, src, "1.1.0")
	r, err = w.Audit()
	require.NoError(t, err)
	assert.True(t, r.Outdated())
	assert.Equal(t, 2, r.Counts()[audit.StatusOutdated])
}
