package extensibility

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Restored is the outcome of re-inserting preserved blocks.
type Restored struct {
	Content string
	// Placed lists ids restored into the template, in preserved order.
	Placed []string
	// Orphaned lists preserved blocks whose marker no longer exists in the
	// template. Their content is not in Content.
	Orphaned []Block
}

func markerPairPattern(id string, withBody bool) *regexp.Regexp {
	q := regexp.QuoteMeta(id)
	start := `<!--\s*USER-EXTENSION-START:\s*` + q + `\s*-->`
	end := `<!--\s*USER-EXTENSION-END:\s*` + q + `\s*-->`
	if withBody {
		return regexp.MustCompile(`(?s)` + start + `.*?` + end)
	}
	return regexp.MustCompile(start + `\s*` + end)
}

// RestoreBlocks re-inserts preserved blocks into a new template.
//
// For each preserved id the template's empty marker pair is replaced first;
// failing that, the first marker pair with any content. Positions are found
// in the template as given, so restored user text is never searched for
// later ids. A block whose marker was removed from the template is left out
// of the content and produces one warning naming its id.
func RestoreBlocks(newTemplateContent string, preserved *BlockSet) Result[Restored] {
	out := Restored{}
	var warnings []string
	var splices []splice

	for _, blk := range preserved.All() {
		loc := markerPairPattern(blk.ID, false).FindStringIndex(newTemplateContent)
		if loc == nil {
			loc = markerPairPattern(blk.ID, true).FindStringIndex(newTemplateContent)
		}
		if loc != nil && overlaps(splices, loc) {
			loc = nil
		}
		if loc == nil {
			out.Orphaned = append(out.Orphaned, blk)
			warnings = append(warnings, fmt.Sprintf(
				"extension point %q no longer exists in the template; its content was not restored (recover it from the archive or deployment history)",
				blk.ID))
			continue
		}
		splices = append(splices, splice{start: loc[0], end: loc[1], text: blk.Text})
		out.Placed = append(out.Placed, blk.ID)
	}

	sort.Slice(splices, func(i, j int) bool { return splices[i].start < splices[j].start })
	var b strings.Builder
	last := 0
	for _, sp := range splices {
		b.WriteString(newTemplateContent[last:sp.start])
		b.WriteString(sp.text)
		last = sp.end
	}
	b.WriteString(newTemplateContent[last:])
	out.Content = b.String()

	return Result[Restored]{Value: out, Warnings: warnings}
}

// splice replaces template[start:end] with text.
type splice struct {
	start, end int
	text       string
}

// overlaps reports whether loc intersects a range already claimed by
// another block.
func overlaps(claimed []splice, loc []int) bool {
	for _, sp := range claimed {
		if loc[0] < sp.end && sp.start < loc[1] {
			return true
		}
	}
	return false
}
