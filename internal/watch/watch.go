// Package watch regenerates documentation when the project tree changes.
// File system events are debounced so a burst of saves triggers one run.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docgen/internal/logfields"
)

// RunFunc performs one regeneration.
type RunFunc func(ctx context.Context) error

// Watcher monitors a project directory and triggers runs.
type Watcher struct {
	root     string
	debounce time.Duration
	run      RunFunc
	log      *slog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
	running bool
	rerun   bool
}

// skippedDirs are never watched; they churn constantly and never affect docs.
var skippedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, "__pycache__": true,
}

// New creates a watcher over root.
func New(root string, debounce time.Duration, run RunFunc, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	return &Watcher{root: abs, debounce: debounce, run: run, log: log, watcher: fsw}, nil
}

// Start watches until ctx is canceled. It blocks.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.log.Info("watching for changes",
		logfields.Path(w.root), slog.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if skippedDirs[base] || strings.HasPrefix(base, ".") {
		return
	}
	// New directories must be added to the watch set.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn("watch new directory failed",
					logfields.Path(event.Name), logfields.Error(err))
			}
		}
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	w.log.Debug("change detected", logfields.Path(event.Name))
	w.scheduleRun(ctx)
}

// scheduleRun arms the debounce timer, replacing any pending trigger.
func (w *Watcher) scheduleRun(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.fireRun(ctx)
	})
}

// fireRun starts a regeneration unless one is already in flight. Triggers
// firing mid-run coalesce into a single follow-up run, so two runs never
// write the same output files concurrently.
func (w *Watcher) fireRun(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.rerun = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	for {
		w.log.Info("regenerating after change")
		if err := w.run(ctx); err != nil {
			w.log.Error("regeneration failed", logfields.Error(err))
		}
		w.mu.Lock()
		if !w.rerun || ctx.Err() != nil {
			w.running = false
			w.rerun = false
			w.mu.Unlock()
			return
		}
		w.rerun = false
		w.mu.Unlock()
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (skippedDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
