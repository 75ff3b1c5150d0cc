package tools

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/audit"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/history"
)

func runMarkdown(s *deploy.RunSummary) string {
	var b strings.Builder

	title := "# Deployment"
	if s.DryRun {
		title = "# Deployment (dry run)"
	}
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "**Run:** `%s`\n", s.ID)
	fmt.Fprintf(&b, "**Framework version:** %s\n", s.Version)
	fmt.Fprintf(&b, "**Source:** %s\n", s.Source)
	fmt.Fprintf(&b, "**Status:** %s\n\n", s.Status)

	if len(s.Files) > 0 {
		b.WriteString("| File | Action | Extensions | Archived |\n")
		b.WriteString("|------|--------|------------|----------|\n")
		for _, f := range s.Files {
			action := string(f.Action)
			if f.Unchanged {
				action = "unchanged"
			}
			ext := "—"
			if f.Preserved {
				ext = "preserved"
			}
			archived := "—"
			if f.Archived != "" {
				archived = "`" + relOrAbs(s.ProjectRoot, f.Archived) + "`"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", f.Display(), action, ext, archived)
		}
		b.WriteString("\n")
	}

	counts := s.Counts()
	fmt.Fprintf(&b, "%d files: %d fresh, %d overwritten, %d merged.\n",
		len(s.Files), counts[deploy.ActionFresh], counts[deploy.ActionOverwrite], counts[deploy.ActionMerged])

	var orphaned []string
	for _, f := range s.Files {
		for _, o := range f.Orphaned {
			orphaned = append(orphaned, fmt.Sprintf("- `%s`: block `%s`", f.Display(), o.ID))
		}
	}
	if len(orphaned) > 0 {
		b.WriteString("\n## Orphaned extension blocks\n\n")
		b.WriteString("The new templates have no place for these blocks. Their content is kept in the deployment history (`idpf_history` with `orphans_path`).\n\n")
		b.WriteString(strings.Join(orphaned, "\n") + "\n")
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## Warnings (%d)\n\n", len(s.Warnings))
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if s.Error != "" {
		fmt.Fprintf(&b, "\n**Error:** %s\n", s.Error)
	}
	return b.String()
}

func auditMarkdown(r *audit.Report) string {
	var b strings.Builder

	deployed := r.DeployedVersion
	if deployed == "" {
		deployed = "none"
	}
	b.WriteString("# Framework Audit\n\n")
	fmt.Fprintf(&b, "**Deployed version:** %s\n", deployed)
	fmt.Fprintf(&b, "**Source version:** %s\n", r.SourceVersion)
	if r.Outdated() {
		b.WriteString("\nA newer framework version is available. Run `idpf_deploy` to upgrade.\n")
	}
	b.WriteString("\n")

	if len(r.Entries) == 0 {
		b.WriteString("Nothing deployed and no templates matched.\n")
		return b.String()
	}

	b.WriteString("| File | Status | Detail |\n")
	b.WriteString("|------|--------|--------|\n")
	for _, status := range audit.Statuses {
		for _, e := range r.Filter(status) {
			detail := e.Detail
			if detail == "" {
				detail = "—"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", e.Path, e.Status, detail)
		}
	}

	counts := r.Counts()
	var parts []string
	for _, status := range audit.Statuses {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	fmt.Fprintf(&b, "\n%s.\n", strings.Join(parts, ", "))
	return b.String()
}

func runsMarkdown(runs []history.Run) string {
	if len(runs) == 0 {
		return "# Deployment History\n\nNo deployments recorded.\n"
	}

	var b strings.Builder
	b.WriteString("# Deployment History\n\n")
	b.WriteString("| Run | Started | Version | Status | Files | Warnings |\n")
	b.WriteString("|-----|---------|---------|--------|-------|----------|\n")
	for _, r := range runs {
		status := r.Status
		if r.Error != "" {
			status += ": " + truncate(r.Error, 60)
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %d | %d |\n",
			r.ID, r.StartedAt, r.Version, status, r.FileCount, r.WarningCount)
	}
	return b.String()
}

func runDetailMarkdown(r *history.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Deployment `%s`\n\n", r.ID)
	fmt.Fprintf(&b, "**Status:** %s\n", r.Status)
	fmt.Fprintf(&b, "**Framework version:** %s\n", r.Version)
	fmt.Fprintf(&b, "**Source:** %s\n", r.Source)
	fmt.Fprintf(&b, "**Started:** %s\n", r.StartedAt)
	fmt.Fprintf(&b, "**Finished:** %s\n", r.FinishedAt)
	if r.Error != "" {
		fmt.Fprintf(&b, "**Error:** %s\n", r.Error)
	}
	b.WriteString("\n")

	if len(r.Files) == 0 {
		b.WriteString("No files were processed.\n")
		return b.String()
	}

	b.WriteString("| File | Action | Archived | Warnings |\n")
	b.WriteString("|------|--------|----------|----------|\n")
	for _, f := range r.Files {
		action := f.Action
		if f.Unchanged {
			action = "unchanged"
		}
		archived := "—"
		if f.Archived != "" {
			archived = "`" + relOrAbs(r.ProjectRoot, f.Archived) + "`"
		}
		warnings := "—"
		if len(f.Warnings) > 0 {
			warnings = strings.Join(f.Warnings, "<br>")
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", f.Path, action, archived, warnings)
	}
	return b.String()
}

func orphansMarkdown(path string, blocks []history.OrphanedBlock) string {
	var b strings.Builder
	if path == "" {
		b.WriteString("# Orphaned Extension Blocks\n\n")
	} else {
		fmt.Fprintf(&b, "# Orphaned Extension Blocks in `%s`\n\n", path)
	}
	if len(blocks) == 0 {
		b.WriteString("None recorded.\n")
		return b.String()
	}
	for _, o := range blocks {
		fmt.Fprintf(&b, "## `%s` in `%s`\n\n", o.BlockID, o.Path)
		fmt.Fprintf(&b, "Orphaned by run `%s` at %s.\n\n", o.RunID, o.CreatedAt)
		b.WriteString("```markdown\n")
		b.WriteString(o.Content)
		if !strings.HasSuffix(o.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}

func relOrAbs(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}
