// Package watcher provides debounced file system watching for registry
// directories, so dashboards and `list --watch` redraw when another process
// saves the snapshot.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
)

// DefaultDebounce is the time to wait after the last file event before
// triggering a callback. This coalesces rapid changes (a temp file write
// followed by a rename) into a single notification.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a registry directory for changes to selected files and
// invokes a callback with debouncing.
type Watcher struct {
	fsw      *fsnotify.Watcher
	names    []string
	debounce time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
}

// New creates a Watcher that monitors dir. Only events on files whose base
// name is in names trigger the callback; an empty names list matches every
// file.
func New(dir string, names []string, callback func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	log.Debug(log.CatWatcher, "watching", "dir", dir, "files", names)
	return &Watcher{
		fsw:      fsw,
		names:    slices.Clone(names),
		debounce: DefaultDebounce,
		callback: callback,
	}, nil
}

// SetDebounce overrides the debounce delay. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run starts the watch loop. It blocks until the context is canceled.
// Errors from the underlying watcher are passed to the optional errFn callback.
func (w *Watcher) Run(ctx context.Context, errFn func(error)) {
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			log.Debug(log.CatWatcher, "change detected", "file", event.Name, "op", event.Op.String())
			w.trigger()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	// Only react to meaningful operations.
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return len(w.names) == 0 || slices.Contains(w.names, filepath.Base(event.Name))
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.callback)
}
