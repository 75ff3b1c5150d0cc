// Package deploy copies framework templates into a project, preserving the
// user's extension blocks in EXTENSIBLE files and recording every written
// file in the project manifest.
package deploy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/archive"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/extensibility"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/fsutil"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/manifest"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/templates"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/version"
)

// writeFile is a package-level var to allow test injection.
var writeFile = fsutil.WriteFile

// Action is what DeployFile did with a destination.
type Action string

const (
	// ActionFresh wrote a template to a path that did not exist.
	ActionFresh Action = "fresh"
	// ActionOverwrite replaced a MANAGED, unmarked or block-less file.
	ActionOverwrite Action = "overwrite"
	// ActionMerged rebuilt an EXTENSIBLE file around its preserved blocks.
	ActionMerged Action = "merged"
)

// FileResult is the outcome of deploying one file.
type FileResult struct {
	Path   string
	Action Action
	// Preserved is true when user extension blocks were carried over.
	Preserved bool
	// Extensible reports the template's own classification.
	Extensible bool
	// Unchanged is true when the destination already held the final content.
	Unchanged bool
	// Checksum is the SHA-256 of the final content.
	Checksum string
	// Archived is the archive copy written after rogue edits, if any.
	Archived string
	// RogueDetails explains the rogue-edit finding, generic message first.
	RogueDetails []string
	// Orphaned holds preserved blocks the new template has no marker for.
	Orphaned []extensibility.Block
	Warnings []string
}

// Recorder receives every finished run, for example a history store.
type Recorder interface {
	RecordRun(summary *RunSummary) error
}

// Options tune a Deployer.
type Options struct {
	// DryRun computes outcomes without writing files, archives or the manifest.
	DryRun bool
	// ProtectedFields always take the template's frontmatter value.
	// Nil means extensibility.DefaultProtectedFields.
	ProtectedFields []string
	// Recorder is optional.
	Recorder Recorder
	// Manifests defaults to a manifest.FileStore.
	Manifests manifest.Store
	Logger    *zap.Logger
}

// Deployer deploys templates from one source into one project.
type Deployer struct {
	projectRoot string
	source      templates.Source
	archiver    *archive.Archiver
	manifests   manifest.Store
	recorder    Recorder
	protected   []string
	dryRun      bool
	log         *zap.Logger
}

// New creates a Deployer for projectRoot reading templates from source.
func New(projectRoot string, source templates.Source, opts Options) *Deployer {
	d := &Deployer{
		projectRoot: projectRoot,
		source:      source,
		archiver:    archive.New(config.StatePath(projectRoot)),
		manifests:   opts.Manifests,
		recorder:    opts.Recorder,
		protected:   opts.ProtectedFields,
		dryRun:      opts.DryRun,
		log:         opts.Logger,
	}
	if d.manifests == nil {
		d.manifests = manifest.NewFileStore()
	}
	if d.protected == nil {
		d.protected = extensibility.DefaultProtectedFields
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	return d
}

// ProjectRoot returns the project the deployer writes into.
func (d *Deployer) ProjectRoot() string { return d.projectRoot }

// DeployFile writes templateContent to destPath, choosing the first
// matching case:
//
//  1. destPath does not exist: write the template (fresh).
//  2. destPath has no header or a MANAGED header: overwrite.
//  3. destPath is EXTENSIBLE without blocks: overwrite.
//  4. destPath is EXTENSIBLE with blocks: archive on rogue edits, restore
//     the blocks into the template, merge frontmatter, write (merged).
//
// Only OS failures return an error, as a *FileError. The destination is
// replaced atomically, so a failed write leaves the previous content.
func (d *Deployer) DeployFile(templateContent, destPath, ver string) (*FileResult, error) {
	res := &FileResult{
		Path:       destPath,
		Extensible: extensibility.IsExtensible(templateContent),
	}

	data, err := os.ReadFile(destPath)
	if errors.Is(err, fs.ErrNotExist) {
		res.Action = ActionFresh
		return d.write(res, "", false, templateContent)
	}
	if err != nil {
		return nil, &FileError{Op: "read", Path: destPath, Err: err}
	}
	existing := string(data)

	header, ok := extensibility.ParseHeader(existing)
	if ok && header.Version != "" && version.IsNewer(ver, header.Version) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"deployed file is marked %s, newer than framework version %s being deployed", header.Version, ver))
	}
	if !ok || header.Category != extensibility.CategoryExtensible {
		res.Action = ActionOverwrite
		return d.write(res, existing, true, templateContent)
	}

	blocks := extensibility.ExtractBlocks(existing)
	if blocks.Len() == 0 {
		res.Action = ActionOverwrite
		return d.write(res, existing, true, templateContent)
	}
	for _, id := range blocks.Duplicates() {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"extension block %q appears more than once; only the first occurrence was kept", id))
	}

	report := extensibility.DetectRogueEdits(existing, templateContent)
	if report.HasRogueEdits {
		res.RogueDetails = report.Details
		if d.dryRun {
			res.Warnings = append(res.Warnings, report.Details[0]+"; the file would be archived before upgrade")
		} else {
			archived, err := d.archiver.Archive(destPath, existing)
			if err != nil {
				return nil, &FileError{Op: "archive", Path: destPath, Err: err}
			}
			res.Archived = archived
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s; previous content archived to %s", report.Details[0], archived))
		}
		d.log.Debug("rogue edits detected",
			zap.String("path", destPath),
			zap.Strings("details", report.Details[1:]))
	}

	restored := extensibility.RestoreBlocks(templateContent, blocks)
	res.Warnings = append(res.Warnings, restored.Warnings...)
	res.Orphaned = restored.Value.Orphaned
	content := restored.Value.Content

	oldFM, _, oldHas := extensibility.SplitFrontmatter(existing)
	newFM, body, newHas := extensibility.SplitFrontmatter(content)
	if oldHas && newHas {
		merged := extensibility.MergeFrontmatter(oldFM, newFM, d.protected)
		res.Warnings = append(res.Warnings, merged.Warnings...)
		if merged.Value != strings.ReplaceAll(newFM, "\r\n", "\n") {
			content = extensibility.JoinFrontmatter(merged.Value, body, extensibility.LineEnding(content))
		}
	}

	res.Action = ActionMerged
	res.Preserved = true
	return d.write(res, existing, true, content)
}

func (d *Deployer) write(res *FileResult, existing string, exists bool, content string) (*FileResult, error) {
	data := []byte(content)
	res.Checksum = manifest.Checksum(data)
	res.Unchanged = exists && existing == content

	if d.dryRun || res.Unchanged {
		return res, nil
	}
	if err := writeFile(res.Path, data); err != nil {
		return nil, &FileError{Op: "write", Path: res.Path, Err: err}
	}
	return res, nil
}
