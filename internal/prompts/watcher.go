package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source yields the catalog in effect right now.
type Source interface {
	Current() *Catalog
}

type fixed struct{ c *Catalog }

func (f fixed) Current() *Catalog { return f.c }

// Fixed returns a Source that always yields c.
func Fixed(c *Catalog) Source { return fixed{c: c} }

const reloadDebounce = 500 * time.Millisecond

// Watcher keeps a catalog file loaded and swaps in a new version whenever
// the file changes. An invalid edit is logged and the previous catalog stays.
type Watcher struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Catalog]
	reloads atomic.Uint32

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher loads path and starts watching it until ctx is done.
func NewWatcher(ctx context.Context, path string, logger *slog.Logger) (*Watcher, error) {
	c, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial prompt catalog: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors often replace the file by rename.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{path: path, logger: logger}
	w.current.Store(c)
	go w.watch(ctx, fw)
	return w, nil
}

func (w *Watcher) Current() *Catalog { return w.current.Load() }

// Reloads reports how many successful reloads have happened.
func (w *Watcher) Reloads() uint32 { return w.reloads.Load() }

func (w *Watcher) watch(ctx context.Context, fw *fsnotify.Watcher) {
	defer func() { _ = fw.Close() }()
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("prompt watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		w.logger.Error("failed to reload prompt catalog", "path", w.path, "error", err)
		return
	}
	w.current.Store(c)
	w.reloads.Add(1)
	w.logger.Info("prompt catalog reloaded", "path", w.path)
}
