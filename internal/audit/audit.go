// Package audit compares a project's deployed framework files against its
// manifest and the current template source. It never writes.
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/manifest"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/templates"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/version"
)

// Status classifies one audited file.
type Status string

const (
	// StatusClean matches its manifest checksum and version.
	StatusClean Status = "clean"
	// StatusOutdated is unmodified but was deployed from an older version.
	StatusOutdated Status = "outdated"
	// StatusModified was changed after deployment.
	StatusModified Status = "modified"
	// StatusMissing is in the manifest but not on disk.
	StatusMissing Status = "missing"
	// StatusObsolete was deployed from a template the source no longer has.
	StatusObsolete Status = "obsolete"
	// StatusUntracked is a template that was never deployed.
	StatusUntracked Status = "untracked"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusMissing, StatusModified, StatusObsolete, StatusOutdated, StatusUntracked, StatusClean}

// Entry is the audit finding for one file.
type Entry struct {
	Category string `json:"category"`
	// Rel is the manifest key inside the category.
	Rel string `json:"rel"`
	// Path is the destination relative to the project root.
	Path       string `json:"path"`
	Source     string `json:"source,omitempty"`
	Extensible bool   `json:"extensible"`
	Status     Status `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// Report is the result of an audit.
type Report struct {
	ProjectRoot     string  `json:"project_root"`
	DeployedVersion string  `json:"deployed_version"`
	SourceVersion   string  `json:"source_version"`
	Entries         []Entry `json:"entries"`
}

// Outdated reports whether the source carries a newer framework version
// than the last successful deployment.
func (r *Report) Outdated() bool {
	return version.IsNewer(r.DeployedVersion, r.SourceVersion)
}

// Counts tallies entries per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, e := range r.Entries {
		counts[e.Status]++
	}
	return counts
}

// Clean reports whether every entry is clean.
func (r *Report) Clean() bool {
	for _, e := range r.Entries {
		if e.Status != StatusClean {
			return false
		}
	}
	return true
}

// Filter returns the entries with status s.
func (r *Report) Filter(s Status) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Status == s {
			out = append(out, e)
		}
	}
	return out
}

// Audit classifies every manifest entry and every planned template.
//
// Precedence for a manifest entry: obsolete, missing, modified, outdated,
// clean. Planned templates without a manifest entry are untracked. Entries
// are sorted by destination path.
func Audit(projectRoot string, cfg *config.Config, m *manifest.Manifest, source templates.Source) (*Report, error) {
	plan, err := deploy.BuildPlan(projectRoot, cfg, source)
	if err != nil {
		return nil, fmt.Errorf("building plan: %w", err)
	}

	r := &Report{
		ProjectRoot:     projectRoot,
		DeployedVersion: m.Version,
		SourceVersion:   version.Normalize(cfg.EffectiveVersion(source.Version())),
	}
	outdated := r.Outdated()

	planned := make(map[string]deploy.PlanItem, len(plan))
	for _, item := range plan {
		planned[key(item.Category, item.Rel)] = item
	}
	destinations := make(map[string]string, len(cfg.Categories))
	for _, c := range cfg.Categories {
		destinations[c.Name] = c.Destination
	}

	for _, f := range m.Files() {
		e := Entry{
			Category:   f.Category,
			Rel:        f.Path,
			Source:     f.Source,
			Extensible: f.Extensible,
		}

		item, inPlan := planned[key(f.Category, f.Path)]
		delete(planned, key(f.Category, f.Path))

		if !inPlan {
			e.Status = StatusObsolete
			e.Path = displayPath(destinations, f.Category, f.Path)
			e.Detail = "template no longer provided by " + source.Name()
			r.Entries = append(r.Entries, e)
			continue
		}
		e.Path = item.Display()

		data, err := os.ReadFile(item.Dest)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.Status = StatusMissing
			e.Detail = "file was deleted after deployment"
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", e.Path, err)
		case manifest.Checksum(data) != f.Checksum:
			e.Status = StatusModified
			e.Detail = "content differs from the deployed checksum"
			if f.Extensible {
				e.Detail += "; the next deploy keeps extension blocks and archives other edits"
			}
		case outdated:
			e.Status = StatusOutdated
			e.Detail = fmt.Sprintf("deployed %s, source is %s", m.Version, r.SourceVersion)
		default:
			e.Status = StatusClean
		}
		r.Entries = append(r.Entries, e)
	}

	for _, item := range planned {
		r.Entries = append(r.Entries, Entry{
			Category: item.Category,
			Rel:      item.Rel,
			Path:     item.Display(),
			Source:   item.Source,
			Status:   StatusUntracked,
			Detail:   "not deployed yet",
		})
	}

	sort.Slice(r.Entries, func(i, j int) bool {
		if r.Entries[i].Path != r.Entries[j].Path {
			return r.Entries[i].Path < r.Entries[j].Path
		}
		return r.Entries[i].Category < r.Entries[j].Category
	})
	return r, nil
}

func displayPath(destinations map[string]string, category, rel string) string {
	dest, ok := destinations[category]
	if !ok {
		return path.Join(category, rel)
	}
	return path.Join(dest, rel)
}

func key(category, rel string) string {
	return category + "\x00" + rel
}
