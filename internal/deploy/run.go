package deploy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/manifest"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// FileOutcome pairs a plan item with its result.
type FileOutcome struct {
	PlanItem
	*FileResult
}

// RunSummary describes one deployment run.
type RunSummary struct {
	ID          string
	ProjectRoot string
	Source      string
	Version     string
	DryRun      bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	// Error is the fatal error that stopped the run, if any.
	Error string
	// Files holds the files processed before the run ended, in plan order.
	Files []FileOutcome
	// Warnings collects every file warning, prefixed with its path.
	Warnings []string
}

// Counts tallies processed files per action.
func (s *RunSummary) Counts() map[Action]int {
	counts := make(map[Action]int, 3)
	for _, f := range s.Files {
		counts[f.Action]++
	}
	return counts
}

// Archived returns the archive copies written during the run.
func (s *RunSummary) Archived() []string {
	var out []string
	for _, f := range s.Files {
		if f.Archived != "" {
			out = append(out, f.Archived)
		}
	}
	return out
}

// Run deploys every plan item in order.
//
// The archive directory is reset once before the first file. Files are
// processed sequentially and ctx is checked between them. The manifest is
// saved once at the end, also when a fatal error or cancellation stops the
// run; in that case only the completed files are recorded and the manifest
// version is left as it was. Dry runs touch nothing on disk.
func (d *Deployer) Run(ctx context.Context, plan []PlanItem, ver string) (*RunSummary, error) {
	summary := &RunSummary{
		ID:          uuid.NewString(),
		ProjectRoot: d.projectRoot,
		Source:      d.source.Name(),
		Version:     ver,
		DryRun:      d.dryRun,
		StartedAt:   timeNow().UTC(),
	}
	log := d.log.With(zap.String("run", summary.ID), zap.String("version", ver))
	log.Info("deployment started", zap.Int("files", len(plan)), zap.Bool("dry_run", d.dryRun))

	m, err := d.manifests.Load(d.projectRoot)
	if err != nil {
		return d.finish(log, summary, nil, fmt.Errorf("loading manifest: %w", err))
	}

	if !d.dryRun {
		if err := d.archiver.Reset(); err != nil {
			return d.finish(log, summary, nil, err)
		}
	}

	for _, item := range plan {
		if err := ctx.Err(); err != nil {
			return d.finish(log, summary, m, err)
		}

		res, err := d.deployItem(item, ver)
		if err != nil {
			return d.finish(log, summary, m, fmt.Errorf("deploying %s: %w", item.Display(), err))
		}

		summary.Files = append(summary.Files, FileOutcome{PlanItem: item, FileResult: res})
		for _, w := range res.Warnings {
			summary.Warnings = append(summary.Warnings, item.Display()+": "+w)
		}
		m.Record(item.Category, item.Rel, manifest.NewEntry(res.Checksum, item.Source, res.Extensible))

		log.Debug("file deployed",
			zap.String("path", item.Display()),
			zap.String("action", string(res.Action)),
			zap.Bool("unchanged", res.Unchanged),
			zap.Int("warnings", len(res.Warnings)))
	}

	m.Stamp(ver)
	return d.finish(log, summary, m, nil)
}

func (d *Deployer) deployItem(item PlanItem, ver string) (*FileResult, error) {
	data, err := d.source.Read(item.Source)
	if err != nil {
		return nil, &FileError{Op: "read template", Path: item.Source, Err: err}
	}
	return d.DeployFile(string(data), item.Dest, ver)
}

// finish saves the manifest, records the run and logs the outcome. A nil m
// skips the manifest save.
func (d *Deployer) finish(log *zap.Logger, summary *RunSummary, m *manifest.Manifest, runErr error) (*RunSummary, error) {
	summary.Status = StatusCompleted
	if runErr != nil {
		summary.Status = StatusFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			summary.Status = StatusCanceled
		}
		summary.Error = runErr.Error()
	}

	if m != nil && !d.dryRun {
		if err := d.manifests.Save(d.projectRoot, m); err != nil {
			saveErr := fmt.Errorf("saving manifest: %w", err)
			if runErr == nil {
				summary.Status = StatusFailed
				summary.Error = saveErr.Error()
				runErr = saveErr
			} else {
				log.Error("manifest not saved after failed run", zap.Error(err))
			}
		}
	}
	summary.FinishedAt = timeNow().UTC()

	if d.recorder != nil && !d.dryRun {
		if err := d.recorder.RecordRun(summary); err != nil {
			log.Warn("recording deployment history failed", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("status", summary.Status),
		zap.Int("files", len(summary.Files)),
		zap.Int("warnings", len(summary.Warnings)),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	}
	if runErr != nil {
		log.Error("deployment stopped", append(fields, zap.Error(runErr))...)
		return summary, runErr
	}
	log.Info("deployment finished", fields...)
	return summary, nil
}

// relTo returns path relative to root when possible.
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
