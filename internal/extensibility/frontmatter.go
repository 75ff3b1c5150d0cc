package extensibility

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultProtectedFields always take the template's value on merge.
var DefaultProtectedFields = []string{"version"}

const frontmatterDelimiter = "---"

// SplitFrontmatter separates a leading frontmatter block from the body.
//
// Grammar: the first line is exactly "---", followed by zero or more
// frontmatter lines, closed by the next line that is exactly "---".
// Trailing whitespace on delimiter lines is ignored. The returned
// frontmatter excludes both delimiter lines; the body starts after the
// closing delimiter's newline. ok is false when content has no complete
// frontmatter block, in which case body is the whole content.
func SplitFrontmatter(content string) (frontmatter, body string, ok bool) {
	first, rest, found := strings.Cut(content, "\n")
	if !found || strings.TrimRight(first, " \t\r") != frontmatterDelimiter {
		return "", content, false
	}

	innerStart := len(first) + 1
	offset := innerStart
	for {
		line, after, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t\r") == frontmatterDelimiter {
			fm := strings.TrimSuffix(content[innerStart:offset], "\n")
			fm = strings.TrimSuffix(fm, "\r")
			if !more {
				after = ""
			}
			return fm, after, true
		}
		if !more {
			return "", content, false
		}
		offset += len(line) + 1
		rest = after
	}
}

// LineEnding reports the line terminator of content's first line, "\r\n"
// or "\n".
func LineEnding(content string) string {
	if i := strings.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// JoinFrontmatter rebuilds a document from a frontmatter block and a body,
// terminating the delimiter and frontmatter lines with eol.
func JoinFrontmatter(frontmatter, body, eol string) string {
	fm := strings.ReplaceAll(frontmatter, "\r\n", "\n")
	if eol != "\n" {
		fm = strings.ReplaceAll(fm, "\n", eol)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter + eol)
	if fm != "" {
		b.WriteString(fm)
		b.WriteString(eol)
	}
	b.WriteString(frontmatterDelimiter + eol)
	b.WriteString(body)
	return b.String()
}

// fmField is one top-level frontmatter field with its verbatim source
// lines, so untouched fields render byte-for-byte.
type fmField struct {
	key string
	raw string
}

// parseFields splits frontmatter into top-level fields.
//
// Grammar: a field starts on an unindented line and its key is everything
// before the first ':'. Indented lines, "- " list items, comments and blank
// lines continue the current field. Comments and blank lines before the
// first field are returned as the prefix. Fields with nested lines and
// values opening a flow collection must also be valid YAML.
func parseFields(text string) ([]fmField, string, error) {
	if text == "" {
		return nil, "", nil
	}

	var (
		fields []fmField
		prefix []string
		cur    []string
		key    string
		nested bool
	)
	seen := make(map[string]bool)
	flush := func() error {
		if key == "" {
			return nil
		}
		raw := strings.Join(cur, "\n")
		if err := validateField(raw, nested); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, fmField{key: key, raw: raw})
		return nil
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			if key == "" {
				prefix = append(prefix, line)
			} else {
				cur = append(cur, line)
			}
			continue
		case line[0] == ' ' || line[0] == '\t' || trimmed == "-" || strings.HasPrefix(line, "- "):
			if key == "" {
				return nil, "", fmt.Errorf("line %d continues no field", i+1)
			}
			cur = append(cur, line)
			nested = true
			continue
		}

		name, _, found := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, "", fmt.Errorf("line %d is not a key: value field", i+1)
		}
		if seen[name] {
			return nil, "", fmt.Errorf("duplicate key %q at line %d", name, i+1)
		}
		if err := flush(); err != nil {
			return nil, "", err
		}
		seen[name] = true
		key = name
		cur = []string{line}
		nested = false
	}
	if err := flush(); err != nil {
		return nil, "", err
	}
	if len(fields) == 0 {
		return nil, text, nil
	}
	return fields, strings.Join(prefix, "\n"), nil
}

// validateField checks the parts of a field that go beyond flat key: value
// lines. Plain values without nested lines are taken as written.
func validateField(raw string, nested bool) error {
	_, value, _ := strings.Cut(raw, ":")
	value = strings.TrimSpace(value)
	if !nested && !strings.HasPrefix(value, "[") && !strings.HasPrefix(value, "{") {
		return nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		return err
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return errors.New("not a key/value mapping")
	}
	return nil
}

// MergeFrontmatter reconciles a deployed file's frontmatter with the
// incoming template's.
//
// The result starts from the template's fields in template order. Each
// field of the existing frontmatter then overwrites the template's value,
// or is appended when the template lacks it, unless the field is
// protected; protected fields always keep the template value. When either
// side fails to parse the template frontmatter is returned unchanged with
// a warning. The result uses "\n" line endings.
func MergeFrontmatter(existing, template string, protected []string) Result[string] {
	existing = strings.ReplaceAll(existing, "\r\n", "\n")
	template = strings.ReplaceAll(template, "\r\n", "\n")

	tmplFields, prefix, err := parseFields(template)
	if err != nil {
		return Warn(template, fmt.Sprintf("template frontmatter could not be parsed (%v); kept template frontmatter as-is", err))
	}
	existingFields, _, err := parseFields(existing)
	if err != nil {
		return Warn(template, fmt.Sprintf("existing frontmatter could not be parsed (%v); user frontmatter fields were replaced by the template's", err))
	}

	isProtected := make(map[string]bool, len(protected))
	for _, p := range protected {
		isProtected[p] = true
	}

	merged := make([]fmField, len(tmplFields))
	copy(merged, tmplFields)
	index := make(map[string]int, len(merged))
	for i, f := range merged {
		index[f.key] = i
	}

	for _, f := range existingFields {
		if isProtected[f.key] {
			continue
		}
		if i, ok := index[f.key]; ok {
			merged[i].raw = f.raw
			continue
		}
		index[f.key] = len(merged)
		merged = append(merged, f)
	}

	parts := make([]string, 0, len(merged)+1)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, f := range merged {
		parts = append(parts, f.raw)
	}
	return Ok(strings.Join(parts, "\n"))
}
