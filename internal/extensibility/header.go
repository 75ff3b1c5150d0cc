package extensibility

import (
	"regexp"
	"strings"
)

// Category classifies a deployed file.
type Category string

const (
	// CategoryExtensible files keep user extension blocks across upgrades.
	CategoryExtensible Category = "EXTENSIBLE"
	// CategoryManaged files are always overwritten.
	CategoryManaged Category = "MANAGED"
)

// headerScanLines bounds the leading region searched for the header marker.
const headerScanLines = 20

// Header is the classification marker of a file snapshot.
type Header struct {
	Category Category
	// Version is the legacy version tag ("v1.2.3"), empty for the
	// current versionless form.
	Version string
}

// headerPattern matches a single-keyword HTML comment with an optional
// version tag:
//
//	<!-- KEYWORD -->
//	<!-- KEYWORD: v1.2.3 -->
var headerPattern = regexp.MustCompile(`<!--\s*([A-Za-z][A-Za-z_-]*)\s*(?::\s*([^\s>]+?))?\s*-->`)

// ParseHeader classifies content by its leading marker comment.
//
// The marker is the first EXTENSIBLE or MANAGED comment within the first
// headerScanLines lines; the keyword is matched case-insensitively. Other
// single-word comments such as lint directives are skipped, except that a
// versioned comment with an unknown keyword ("<!-- CUSTOM: v1 -->") is a
// marker of its own and ends the scan. It returns false when no marker
// exists or the marker is unknown; callers must treat that as MANAGED.
func ParseHeader(content string) (*Header, bool) {
	lines := strings.SplitN(content, "\n", headerScanLines+1)
	if len(lines) > headerScanLines {
		lines = lines[:headerScanLines]
	}
	region := strings.Join(lines, "\n")

	for _, m := range headerPattern.FindAllStringSubmatch(region, -1) {
		keyword := strings.ToUpper(m[1])
		if strings.HasPrefix(keyword, markerPrefix) {
			continue
		}
		switch Category(keyword) {
		case CategoryExtensible, CategoryManaged:
			return &Header{Category: Category(keyword), Version: m[2]}, true
		}
		if m[2] != "" {
			return nil, false
		}
	}
	return nil, false
}

// IsExtensible reports whether content is classified EXTENSIBLE.
func IsExtensible(content string) bool {
	h, ok := ParseHeader(content)
	return ok && h.Category == CategoryExtensible
}
