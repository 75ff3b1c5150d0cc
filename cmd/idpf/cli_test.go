package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
)

// setupProject points the global flags at a fresh project and resets them
// when the test ends.
func setupProject(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()
	root := t.TempDir()
	projectDir = root
	t.Cleanup(func() {
		projectDir, sourceDir = "", ""
		dryRun, auditCheck, historyLimit = false, false, 10
	})
	return root
}

// run calls a command's RunE with captured output.
func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := fn(cmd, args)
	return buf.String(), err
}

func TestInitCmd(t *testing.T) {
	root := setupProject(t)

	out, err := run(t, runInit)
	if err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if !strings.Contains(out, "Created") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(config.ConfigPath(root)); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	// Running it again leaves the config alone.
	out, err = run(t, runInit)
	if err != nil {
		t.Fatalf("second runInit failed: %v", err)
	}
	if !strings.Contains(out, "left unchanged") {
		t.Errorf("unexpected output on second init: %s", out)
	}
}

func TestDeployCmd(t *testing.T) {
	root := setupProject(t)

	out, err := run(t, runDeploy)
	if err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}
	if !strings.Contains(out, "Deployed framework 1.0.0") || !strings.Contains(out, "4 files: 4 fresh") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, ".claude", "rules", "workflow.md")); err != nil {
		t.Errorf("workflow.md not deployed: %v", err)
	}

	// A second deployment rewrites nothing.
	out, err = run(t, runDeploy)
	if err != nil {
		t.Fatalf("second runDeploy failed: %v", err)
	}
	if !strings.Contains(out, "4 unchanged") {
		t.Errorf("redeploy should leave files unchanged:\n%s", out)
	}
}

func TestDeployCmd_DryRun(t *testing.T) {
	root := setupProject(t)
	dryRun = true

	out, err := run(t, runDeploy)
	if err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}
	if !strings.Contains(out, "Dry run of framework") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, "CLAUDE.md")); !os.IsNotExist(err) {
		t.Error("dry run wrote CLAUDE.md")
	}
}

func TestDeployCmd_MissingSource(t *testing.T) {
	setupProject(t)
	sourceDir = "no-such-dir"

	if _, err := run(t, runDeploy); err == nil {
		t.Fatal("expected an error for a missing template source")
	}
}

func TestAuditCmd(t *testing.T) {
	root := setupProject(t)
	if _, err := run(t, runDeploy); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}

	auditCheck = true
	out, err := run(t, runAudit)
	if err != nil {
		t.Fatalf("clean audit should pass --check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "4 clean") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if err := os.Remove(filepath.Join(root, "CLAUDE.md")); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, runAudit)
	if err != errNotClean {
		t.Fatalf("expected errNotClean, got %v", err)
	}
	if !strings.Contains(out, "missing") {
		t.Errorf("missing file not reported:\n%s", out)
	}
}

func TestHistoryCmd(t *testing.T) {
	setupProject(t)

	out, err := run(t, runHistory)
	if err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}
	if !strings.Contains(out, "No deployments recorded.") {
		t.Errorf("unexpected output before any deploy:\n%s", out)
	}

	if _, err := run(t, runDeploy); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}
	out, err = run(t, runHistory)
	if err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}
	if !strings.Contains(out, "completed") {
		t.Fatalf("run not listed:\n%s", out)
	}

	id := strings.Fields(out)[0]
	out, err = run(t, runHistory, id)
	if err != nil {
		t.Fatalf("runHistory %s failed: %v", id, err)
	}
	if !strings.Contains(out, ".claude/rules/workflow.md") {
		t.Errorf("run detail should list files:\n%s", out)
	}

	if _, err := run(t, runHistory, "zzzz"); err == nil {
		t.Error("unknown run id should fail")
	}
}

func TestOrphansCmd(t *testing.T) {
	root := setupProject(t)
	if _, err := run(t, runDeploy); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}

	dest := filepath.Join(root, ".claude", "rules", "workflow.md")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	extra := "\n<!-- USER-EXTENSION-START: retired -->\nold notes\n<!-- USER-EXTENSION-END: retired -->\n"
	if err := os.WriteFile(dest, append(data, extra...), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, runDeploy); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}

	out, err := run(t, runOrphans, ".claude/rules/workflow.md")
	if err != nil {
		t.Fatalf("runOrphans failed: %v", err)
	}
	if !strings.Contains(out, "retired") || !strings.Contains(out, "old notes") {
		t.Errorf("orphaned block not shown:\n%s", out)
	}
}

func TestWatchCmd_RequiresDirectorySource(t *testing.T) {
	setupProject(t)

	_, err := run(t, runWatch)
	if err == nil || !strings.Contains(err.Error(), "template directory") {
		t.Fatalf("expected a template directory error, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, runVersion)
	if err != nil {
		t.Fatalf("runVersion failed: %v", err)
	}
	if !strings.HasPrefix(out, "idpf v") {
		t.Errorf("unexpected output: %q", out)
	}
}
