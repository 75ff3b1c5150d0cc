package extensibility

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RogueEditMessage is the first detail of every positive rogue-edit report.
const RogueEditMessage = "content outside extension blocks differs from the incoming template"

const (
	maxRogueHints = 5
	maxHintRunes  = 80
	ellipsis      = "..."
)

// RogueReport is the outcome of comparing a deployed file to a template.
type RogueReport struct {
	HasRogueEdits bool
	// Details starts with RogueEditMessage and is followed by line hints.
	Details []string
}

// DetectRogueEdits compares a deployed file against the incoming template
// outside of extension blocks.
//
// Each side's own blocks are replaced by Placeholder(id), then incidental
// whitespace is normalized. Any remaining difference is reported,
// frontmatter included. The baseline is the incoming template, so upstream
// template changes outside blocks are reported the same way as user edits.
func DetectRogueEdits(oldContent, newTemplateContent string) RogueReport {
	oldNorm := comparableText(oldContent)
	newNorm := comparableText(newTemplateContent)
	if oldNorm == newNorm {
		return RogueReport{}
	}

	details := []string{RogueEditMessage}
	details = append(details, lineHints(oldNorm, newNorm)...)
	return RogueReport{HasRogueEdits: true, Details: details}
}

// comparableText reduces content to the part governed by rogue-edit rules.
func comparableText(content string) string {
	return normalizeWhitespace(substitutePlaceholders(content))
}

// substitutePlaceholders replaces every captured block, duplicates
// included, with its placeholder token.
func substitutePlaceholders(content string) string {
	set := ExtractBlocks(content)
	if len(set.occurrences) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, blk := range set.occurrences {
		b.WriteString(content[last:blk.Start])
		b.WriteString(Placeholder(blk.ID))
		last = blk.End
	}
	b.WriteString(content[last:])
	return b.String()
}

// normalizeWhitespace converts CRLF to LF, strips trailing spaces and tabs,
// collapses runs of blank lines and trims blank lines at both ends.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")

	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		blank := line == ""
		if blank && prevBlank {
			continue
		}
		prevBlank = blank
		out = append(out, line)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

// lineHints localizes the first few differing lines between two normalized
// texts.
func lineHints(oldText, newText string) []string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var hints []string
	extra := 0
	line := 1
	add := func(h string) {
		if len(hints) < maxRogueHints {
			hints = append(hints, h)
			return
		}
		extra++
	}

	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			line += len(chunk)
		case diffmatchpatch.DiffDelete:
			for _, l := range chunk {
				add(fmt.Sprintf("line %d of the deployed file is not in the template: %q", line, clip(l)))
				line++
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range chunk {
				add(fmt.Sprintf("template line missing from the deployed file near line %d: %q", line, clip(l)))
			}
		}
	}

	if extra > 0 {
		hints = append(hints, fmt.Sprintf("%d more differing lines not shown", extra))
	}
	return hints
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxHintRunes {
		return s
	}
	return string(r[:maxHintRunes-len(ellipsis)]) + ellipsis
}
