package deploy

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/templates"
)

// PlanItem is one template file and where it goes.
type PlanItem struct {
	Category string
	// Source is the template's path inside the template source.
	Source string
	// Rel is the path relative to the category destination, and the
	// manifest key.
	Rel string
	// Dest is the absolute destination path.
	Dest string
	// root is the project root, for display.
	root string
}

// Display returns the destination relative to the project root.
func (p PlanItem) Display() string {
	if p.root == "" {
		return p.Dest
	}
	return relTo(p.root, p.Dest)
}

// BuildPlan expands every category's source pattern against source.
//
// The category-relative path of a match is the match with the pattern's
// static prefix removed: "rules/**/*.md" maps "rules/a/b.md" to "a/b.md".
// Items keep category order, then path order. Two templates resolving to
// the same destination are an error.
func BuildPlan(projectRoot string, cfg *config.Config, source templates.Source) ([]PlanItem, error) {
	var plan []PlanItem
	owner := make(map[string]string)

	for _, cat := range cfg.Categories {
		matches, err := source.Glob(cat.Source)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		base, _ := doublestar.SplitPattern(cat.Source)

		for _, m := range matches {
			rel := m
			if base != "." {
				rel = strings.TrimPrefix(m, base+"/")
			}
			rel = path.Clean(rel)

			dest := filepath.Join(projectRoot, filepath.FromSlash(cat.Destination), filepath.FromSlash(rel))
			if prev, ok := owner[dest]; ok {
				return nil, fmt.Errorf("templates %s and %s both deploy to %s", prev, m, relTo(projectRoot, dest))
			}
			owner[dest] = m

			plan = append(plan, PlanItem{
				Category: cat.Name,
				Source:   m,
				Rel:      rel,
				Dest:     dest,
				root:     projectRoot,
			})
		}
	}
	return plan, nil
}
