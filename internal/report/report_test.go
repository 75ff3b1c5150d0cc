package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/audit"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/history"
)

func outcome(display string, res deploy.FileResult) deploy.FileOutcome {
	return deploy.FileOutcome{PlanItem: deploy.PlanItem{Dest: display}, FileResult: &res}
}

// --- RenderRun ---

func TestRenderRun(t *testing.T) {
	s := &deploy.RunSummary{
		ProjectRoot: "/work/p",
		Source:      "embedded",
		Version:     "2.0.0",
		Status:      deploy.StatusCompleted,
		Files: []deploy.FileOutcome{
			outcome(".claude/rules/a.md", deploy.FileResult{Action: deploy.ActionFresh}),
			outcome(".claude/rules/workflow.md", deploy.FileResult{
				Action: deploy.ActionMerged, Preserved: true,
				Archived: "/work/p/.idpf/archive/workflow-2026-03-14.md",
			}),
			outcome("CLAUDE.md", deploy.FileResult{Action: deploy.ActionMerged, Preserved: true, Unchanged: true}),
		},
		Warnings: []string{".claude/rules/workflow.md: rogue edits detected"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "Deployed framework 2.0.0 from embedded")
	assert.Contains(t, out, "fresh      .claude/rules/a.md")
	assert.Contains(t, out, "merged     .claude/rules/workflow.md (extensions preserved)")
	assert.Contains(t, out, "archived   .idpf/archive/workflow-2026-03-14.md")
	assert.Contains(t, out, "unchanged  CLAUDE.md\n")
	assert.Contains(t, out, "3 files: 1 fresh, 0 overwritten, 2 merged, 1 unchanged")
	assert.Contains(t, out, "Warnings (1):\n  ! .claude/rules/workflow.md: rogue edits detected")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestRenderRun_DryRunAndFailure(t *testing.T) {
	s := &deploy.RunSummary{
		Source:  "/src/framework",
		Version: "2.0.0",
		DryRun:  true,
		Status:  deploy.StatusFailed,
		Error:   "deploying CLAUDE.md: write CLAUDE.md: permission denied",
	}

	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, s))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Dry run of framework 2.0.0 from /src/framework\n"), out)
	assert.Contains(t, out, "0 files:")
	assert.NotContains(t, out, "Warnings")
	assert.Contains(t, out, "Deployment failed: deploying CLAUDE.md")
}

// --- RenderAudit ---

func TestRenderAudit(t *testing.T) {
	r := &audit.Report{
		DeployedVersion: "1.0.0",
		SourceVersion:   "1.1.0",
		Entries: []audit.Entry{
			{Path: "CLAUDE.md", Status: audit.StatusOutdated, Detail: "deployed 1.0.0, source is 1.1.0"},
			{Path: ".claude/rules/a.md", Status: audit.StatusModified, Detail: "content differs"},
			{Path: ".claude/rules/b.md", Status: audit.StatusClean},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderAudit(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "Framework deployed: 1.0.0, source: 1.1.0")
	assert.Contains(t, out, "newer framework version is available")

	modified := strings.Index(out, "modified   .claude/rules/a.md")
	outdated := strings.Index(out, "outdated   CLAUDE.md")
	clean := strings.Index(out, "clean      .claude/rules/b.md")
	require.True(t, modified >= 0 && outdated >= 0 && clean >= 0, out)
	assert.Less(t, modified, outdated)
	assert.Less(t, outdated, clean)

	assert.Contains(t, out, "1 modified, 1 outdated, 1 clean")
}

func TestRenderAudit_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderAudit(&buf, &audit.Report{SourceVersion: "1.0.0"}))
	assert.Contains(t, buf.String(), "Framework deployed: none")
	assert.Contains(t, buf.String(), "nothing deployed")
}

// --- History ---

func TestRenderRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRuns(&buf, nil))
	assert.Equal(t, "No deployments recorded.\n", buf.String())

	buf.Reset()
	require.NoError(t, RenderRuns(&buf, []history.Run{{
		ID: "3f2a9c1e-aaaa-4bbb-8ccc-000000000001", StartedAt: "2026-03-14T09:30:00Z",
		Version: "2.0.0", Status: "completed", FileCount: 4, WarningCount: 1,
	}}))
	assert.Equal(t, "3f2a9c1e  2026-03-14T09:30:00Z  2.0.0  completed  4 files, 1 warnings\n", buf.String())
}

func TestRenderRunDetail(t *testing.T) {
	run := &history.Run{
		ID: "abc", ProjectRoot: "/work/p", Source: "embedded", Version: "2.0.0",
		Status: "failed", Error: "disk full",
		Files: []history.FileRecord{
			{Path: "CLAUDE.md", Action: "merged", Archived: "/work/p/.idpf/archive/CLAUDE-2026-03-14.md", Warnings: []string{"rogue"}},
			{Path: "a.md", Action: "fresh", Unchanged: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderRunDetail(&buf, run))
	out := buf.String()

	assert.Contains(t, out, "Run abc")
	assert.Contains(t, out, "error:    disk full")
	assert.Contains(t, out, "archived   .idpf/archive/CLAUDE-2026-03-14.md")
	assert.Contains(t, out, "unchanged  a.md")
	assert.Contains(t, out, "! CLAUDE.md: rogue")
}

func TestRenderOrphans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderOrphans(&buf, nil))
	assert.Equal(t, "No orphaned extension blocks.\n", buf.String())

	buf.Reset()
	require.NoError(t, RenderOrphans(&buf, []history.OrphanedBlock{{
		RunID: "run-1", Path: "CLAUDE.md", BlockID: "notes", CreatedAt: "2026-03-14T09:30:00Z",
		Content: "<!-- USER-EXTENSION-START: notes -->\nmine\n<!-- USER-EXTENSION-END: notes -->",
	}}))
	assert.Equal(t,
		"CLAUDE.md notes (run run-1, 2026-03-14T09:30:00Z)\n"+
			"<!-- USER-EXTENSION-START: notes -->\nmine\n<!-- USER-EXTENSION-END: notes -->\n\n",
		buf.String())
}

// --- helpers ---

func TestRelPath(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"/work/p", "/work/p/.idpf/archive/x.md", ".idpf/archive/x.md"},
		{"/work/p", "/elsewhere/x.md", "/elsewhere/x.md"},
		{"", "/work/p/x.md", "/work/p/x.md"},
	}
	for _, tt := range tests {
		if got := relPath(tt.root, tt.path); got != tt.want {
			t.Errorf("relPath(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}
