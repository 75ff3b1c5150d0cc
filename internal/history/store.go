// Package history keeps a local log of deployment runs in SQLite,
// including the content of extension blocks that an upgrade orphaned, so
// nothing a user wrote is lost for good.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/deploy"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the database file name inside the state directory.
const DBFile = "history.db"

const timeLayout = time.RFC3339

// ErrRunNotFound is returned when no run matches an id.
var ErrRunNotFound = errors.New("run not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// Run is one recorded deployment.
type Run struct {
	ID           string       `json:"id"`
	ProjectRoot  string       `json:"project_root"`
	Source       string       `json:"source"`
	Version      string       `json:"version"`
	Status       string       `json:"status"`
	Error        string       `json:"error,omitempty"`
	StartedAt    string       `json:"started_at"`
	FinishedAt   string       `json:"finished_at"`
	FileCount    int          `json:"file_count"`
	WarningCount int          `json:"warning_count"`
	Files        []FileRecord `json:"files,omitempty"`
}

// FileRecord is one file of a run.
type FileRecord struct {
	Path      string   `json:"path"`
	Category  string   `json:"category"`
	Source    string   `json:"source"`
	Action    string   `json:"action"`
	Preserved bool     `json:"preserved"`
	Unchanged bool     `json:"unchanged"`
	Checksum  string   `json:"checksum"`
	Archived  string   `json:"archived,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// OrphanedBlock is extension block content the new template had no place for.
type OrphanedBlock struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Path      string `json:"path"`
	BlockID   string `json:"block_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the deployment history backed by SQLite.
type Store struct {
	db *sql.DB
}

// Path returns the history database path for a project.
func Path(projectRoot string) string {
	return filepath.Join(config.StatePath(projectRoot), DBFile)
}

// New opens (creating if needed) the history database in dataDir, with WAL
// mode, and runs migrations.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// Connection pragmas must hold for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Open opens the history database of a project.
func Open(projectRoot string) (*Store, error) {
	return New(config.StatePath(projectRoot))
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			project_root  TEXT    NOT NULL,
			source        TEXT    NOT NULL,
			version       TEXT    NOT NULL,
			status        TEXT    NOT NULL,
			error         TEXT    NOT NULL DEFAULT '',
			started_at    TEXT    NOT NULL,
			finished_at   TEXT    NOT NULL,
			file_count    INTEGER NOT NULL DEFAULT 0,
			warning_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS file_results (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT    NOT NULL,
			position  INTEGER NOT NULL,
			path      TEXT    NOT NULL,
			category  TEXT    NOT NULL,
			source    TEXT    NOT NULL,
			action    TEXT    NOT NULL,
			preserved INTEGER NOT NULL DEFAULT 0,
			unchanged INTEGER NOT NULL DEFAULT 0,
			checksum  TEXT    NOT NULL,
			archived  TEXT    NOT NULL DEFAULT '',
			warnings  TEXT    NOT NULL DEFAULT '[]',
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_files_run ON file_results(run_id, position);

		CREATE TABLE IF NOT EXISTS orphaned_blocks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			path       TEXT NOT NULL,
			block_id   TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_orphans_path ON orphaned_blocks(path, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Runs ────────────────────────────────────────────────────────────────────

// RecordRun stores a finished run with its files and orphaned blocks in one
// transaction. It implements deploy.Recorder.
func (s *Store) RecordRun(summary *deploy.RunSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = summary.StartedAt
	}
	_, err = tx.Exec(
		`INSERT INTO runs (id, project_root, source, version, status, error, started_at, finished_at, file_count, warning_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.ProjectRoot, summary.Source, summary.Version, summary.Status, summary.Error,
		summary.StartedAt.UTC().Format(timeLayout), finished.UTC().Format(timeLayout),
		len(summary.Files), len(summary.Warnings),
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}

	created := finished.UTC().Format(timeLayout)
	for i, f := range summary.Files {
		warnings, err := json.Marshal(nonNil(f.Warnings))
		if err != nil {
			return fmt.Errorf("history: encode warnings: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO file_results (run_id, position, path, category, source, action, preserved, unchanged, checksum, archived, warnings)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.ID, i, f.Display(), f.Category, f.PlanItem.Source, string(f.Action),
			f.Preserved, f.Unchanged, f.Checksum, f.Archived, string(warnings),
		)
		if err != nil {
			return fmt.Errorf("history: insert file %s: %w", f.Display(), err)
		}

		for _, b := range f.Orphaned {
			_, err = tx.Exec(
				`INSERT INTO orphaned_blocks (run_id, path, block_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
				summary.ID, f.Display(), b.ID, b.Text, created,
			)
			if err != nil {
				return fmt.Errorf("history: insert orphaned block %q: %w", b.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, without their files.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, project_root, source, version, status, error, started_at, finished_at, file_count, warning_count
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its files. id may be a unique prefix of the
// full run id.
func (s *Store) GetRun(id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.Query(
		`SELECT id, project_root, source, version, status, error, started_at, finished_at, file_count, warning_count
		 FROM runs WHERE id = ? OR substr(id, 1, length(?)) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}

	var matches []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}

	run := matches[0]
	files, err := s.runFiles(run.ID)
	if err != nil {
		return nil, err
	}
	run.Files = files
	return run, nil
}

func (s *Store) runFiles(runID string) ([]FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT path, category, source, action, preserved, unchanged, checksum, archived, warnings
		 FROM file_results WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: run files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var warnings string
		if err := rows.Scan(&f.Path, &f.Category, &f.Source, &f.Action, &f.Preserved, &f.Unchanged,
			&f.Checksum, &f.Archived, &warnings); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(warnings), &f.Warnings); err != nil {
			return nil, fmt.Errorf("history: decode warnings for %s: %w", f.Path, err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ─── Orphaned blocks ─────────────────────────────────────────────────────────

// OrphanedBlocks returns orphaned extension blocks for a project-relative
// path, newest first. An empty path returns all of them.
func (s *Store) OrphanedBlocks(path string) ([]OrphanedBlock, error) {
	query := `SELECT id, run_id, path, block_id, content, created_at FROM orphaned_blocks`
	var args []any
	if path != "" {
		query += ` WHERE path = ?`
		args = append(args, filepath.ToSlash(path))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: orphaned blocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []OrphanedBlock
	for rows.Next() {
		var b OrphanedBlock
		if err := rows.Scan(&b.ID, &b.RunID, &b.Path, &b.BlockID, &b.Content, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.ProjectRoot, &r.Source, &r.Version, &r.Status, &r.Error,
		&r.StartedAt, &r.FinishedAt, &r.FileCount, &r.WarningCount); err != nil {
		return nil, err
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
