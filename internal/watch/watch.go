// Package watch runs a callback whenever files under a framework source
// directory change. Bursts of events are collapsed into one call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last event before the
// handler runs.
const DefaultDebounce = 300 * time.Millisecond

// Handler receives the changed paths of one burst, sorted and deduplicated.
// A returned error is logged; watching continues.
type Handler func(ctx context.Context, changed []string) error

// Options tune a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher watches a directory tree.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	log      *zap.Logger
}

// New watches every directory below root. Directories created later are
// added as they appear.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watching %s: not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		fsw:      fsw,
		handler:  handler,
		debounce: opts.Debounce,
		log:      opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers debounced changes to the handler until ctx is done, then
// releases the watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
						w.log.Warn("watching new directory failed", zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}

			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			changed := w.drain(pending)
			w.log.Debug("source changed", zap.Strings("paths", changed))
			if err := w.handler(ctx, changed); err != nil {
				w.log.Error("change handler failed", zap.Error(err))
			}
		}
	}
}

// drain empties pending and returns its paths relative to the root.
func (w *Watcher) drain(pending map[string]struct{}) []string {
	out := make([]string, 0, len(pending))
	for p := range pending {
		if rel, err := filepath.Rel(w.root, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		out = append(out, p)
	}
	clear(pending)
	sort.Strings(out)
	return out
}

// ignored matches version control directories and editor scratch files.
func ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case base == ".git", base == ".hg", base == ".svn":
		return true
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"), strings.HasSuffix(base, "~"):
		return true
	case strings.HasPrefix(base, ".#"), base == "4913":
		return true
	}
	return false
}
