// Package report renders deployment, audit and history results for the
// terminal. Colors are chosen per writer, so output to a pipe or a file is
// plain text.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/audit"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/history"
)

var (
	colorOK    = lipgloss.Color("#2CD7C7")
	colorWarn  = lipgloss.Color("#F4D03F")
	colorError = lipgloss.Color("#E74C3C")
	colorMuted = lipgloss.Color("#6C7A89")
)

type styles struct {
	title lipgloss.Style
	bold  lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(colorOK),
		bold:  r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(colorOK),
		warn:  r.NewStyle().Foreground(colorWarn),
		err:   r.NewStyle().Foreground(colorError),
		muted: r.NewStyle().Foreground(colorMuted),
	}
}

// label pads a status word to a fixed column before styling it.
func label(style lipgloss.Style, word string) string {
	return style.Render(fmt.Sprintf("%-10s", word))
}

// ─── Deployment ──────────────────────────────────────────────────────────────

// RenderRun prints every processed file, the archive copies and the
// collected warnings of a deployment run.
func RenderRun(w io.Writer, s *deploy.RunSummary) error {
	st := newStyles(w)
	var b strings.Builder

	verb := "Deployed"
	if s.DryRun {
		verb = "Dry run of"
	}
	fmt.Fprintf(&b, "%s\n", st.title.Render(fmt.Sprintf("%s framework %s from %s", verb, s.Version, s.Source)))

	unchanged := 0
	for _, f := range s.Files {
		word, style := string(f.Action), st.ok
		switch {
		case f.Unchanged:
			word, style = "unchanged", st.muted
			unchanged++
		case f.Action == deploy.ActionOverwrite:
			style = st.bold
		}
		line := fmt.Sprintf("  %s %s", label(style, word), f.Display())
		if f.Preserved && !f.Unchanged {
			line += st.muted.Render(" (extensions preserved)")
		}
		b.WriteString(line + "\n")
		if f.Archived != "" {
			fmt.Fprintf(&b, "  %s %s\n", label(st.warn, "archived"), relPath(s.ProjectRoot, f.Archived))
		}
	}

	counts := s.Counts()
	fmt.Fprintf(&b, "%d files: %d fresh, %d overwritten, %d merged, %d unchanged\n",
		len(s.Files), counts[deploy.ActionFresh], counts[deploy.ActionOverwrite], counts[deploy.ActionMerged], unchanged)

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", st.warn.Render(fmt.Sprintf("Warnings (%d):", len(s.Warnings))))
		for _, msg := range s.Warnings {
			fmt.Fprintf(&b, "  %s %s\n", st.warn.Render("!"), msg)
		}
	}

	if s.Error != "" {
		fmt.Fprintf(&b, "\n%s %s\n", st.err.Render("Deployment "+s.Status+":"), s.Error)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ─── Audit ───────────────────────────────────────────────────────────────────

// RenderAudit prints audit findings grouped by status, clean files last.
func RenderAudit(w io.Writer, r *audit.Report) error {
	st := newStyles(w)
	var b strings.Builder

	deployed := r.DeployedVersion
	if deployed == "" {
		deployed = "none"
	}
	fmt.Fprintf(&b, "%s\n", st.title.Render(fmt.Sprintf("Framework deployed: %s, source: %s", deployed, r.SourceVersion)))
	if r.Outdated() {
		fmt.Fprintf(&b, "%s\n", st.warn.Render("A newer framework version is available; run `idpf deploy` to upgrade."))
	}

	for _, status := range audit.Statuses {
		entries := r.Filter(status)
		if len(entries) == 0 {
			continue
		}
		style := statusStyle(st, status)
		for _, e := range entries {
			line := fmt.Sprintf("  %s %s", label(style, string(status)), e.Path)
			if e.Detail != "" && status != audit.StatusClean {
				line += st.muted.Render("  " + e.Detail)
			}
			b.WriteString(line + "\n")
		}
	}

	counts := r.Counts()
	var parts []string
	for _, status := range audit.Statuses {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "nothing deployed")
	}
	fmt.Fprintf(&b, "%s\n", strings.Join(parts, ", "))

	_, err := io.WriteString(w, b.String())
	return err
}

func statusStyle(st styles, s audit.Status) lipgloss.Style {
	switch s {
	case audit.StatusClean:
		return st.ok
	case audit.StatusMissing, audit.StatusModified:
		return st.err
	case audit.StatusUntracked:
		return st.muted
	default:
		return st.warn
	}
}

// ─── History ─────────────────────────────────────────────────────────────────

// RenderRuns prints one line per recorded run.
func RenderRuns(w io.Writer, runs []history.Run) error {
	st := newStyles(w)
	var b strings.Builder

	if len(runs) == 0 {
		b.WriteString("No deployments recorded.\n")
	}
	for _, r := range runs {
		fmt.Fprintf(&b, "%s  %s  %s  %s %d files, %d warnings\n",
			st.bold.Render(shortID(r.ID)), r.StartedAt, r.Version,
			label(runStatusStyle(st, r.Status), r.Status), r.FileCount, r.WarningCount)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderRunDetail prints a recorded run with its files and warnings.
func RenderRunDetail(w io.Writer, r *history.Run) error {
	st := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", st.title.Render("Run "+r.ID))
	fmt.Fprintf(&b, "  status:   %s\n", runStatusStyle(st, r.Status).Render(r.Status))
	fmt.Fprintf(&b, "  version:  %s from %s\n", r.Version, r.Source)
	fmt.Fprintf(&b, "  started:  %s\n", r.StartedAt)
	fmt.Fprintf(&b, "  finished: %s\n", r.FinishedAt)
	if r.Error != "" {
		fmt.Fprintf(&b, "  error:    %s\n", st.err.Render(r.Error))
	}

	var warnings []string
	for _, f := range r.Files {
		word := f.Action
		if f.Unchanged {
			word = "unchanged"
		}
		fmt.Fprintf(&b, "  %s %s\n", label(st.ok, word), f.Path)
		if f.Archived != "" {
			fmt.Fprintf(&b, "  %s %s\n", label(st.warn, "archived"), relPath(r.ProjectRoot, f.Archived))
		}
		for _, msg := range f.Warnings {
			warnings = append(warnings, f.Path+": "+msg)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", st.warn.Render(fmt.Sprintf("Warnings (%d):", len(warnings))))
		for _, msg := range warnings {
			fmt.Fprintf(&b, "  %s %s\n", st.warn.Render("!"), msg)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderOrphans prints orphaned extension blocks with their full content,
// ready to paste back into a file.
func RenderOrphans(w io.Writer, blocks []history.OrphanedBlock) error {
	st := newStyles(w)
	var b strings.Builder

	if len(blocks) == 0 {
		b.WriteString("No orphaned extension blocks.\n")
	}
	sorted := append([]history.OrphanedBlock(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for _, o := range sorted {
		fmt.Fprintf(&b, "%s %s\n", st.bold.Render(o.Path+" "+o.BlockID),
			st.muted.Render(fmt.Sprintf("(run %s, %s)", shortID(o.RunID), o.CreatedAt)))
		b.WriteString(o.Content)
		if !strings.HasSuffix(o.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func runStatusStyle(st styles, status string) lipgloss.Style {
	switch status {
	case deploy.StatusCompleted:
		return st.ok
	case deploy.StatusCanceled:
		return st.warn
	default:
		return st.err
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func relPath(root, p string) string {
	if root == "" {
		return p
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}
