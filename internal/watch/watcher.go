package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc rebuilds and relinks the named package.
type RebuildFunc func(ctx context.Context, name string) error

// Options configures a Watcher.
type Options struct {
	Debounce        time.Duration
	DefaultPatterns []string // used by targets without their own patterns
	Logger          *zap.Logger
	Out             io.Writer // optional "changed" lines
}

// Watcher triggers rebuilds for packages whose watched files change.
type Watcher struct {
	targets   []Target
	rebuild   RebuildFunc
	debouncer *Debouncer
	logger    *zap.Logger
	out       io.Writer

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New returns a Watcher for targets. Patterns are resolved up front:
// a target without patterns gets opts.DefaultPatterns, or "**" when
// there are none.
func New(targets []Target, rebuild RebuildFunc, opts Options) *Watcher {
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resolved := make([]Target, len(targets))
	for i, t := range targets {
		if len(t.Patterns) == 0 {
			t.Patterns = opts.DefaultPatterns
		}
		if len(t.Patterns) == 0 {
			t.Patterns = []string{"**"}
		}
		resolved[i] = t
	}

	return &Watcher{
		targets:   resolved,
		rebuild:   rebuild,
		debouncer: NewDebouncer(delay),
		logger:    logger,
		out:       opts.Out,
	}
}

// Targets returns the watched packages with their resolved patterns.
func (w *Watcher) Targets() []Target {
	return append([]Target(nil), w.targets...)
}

// Start registers every package directory and begins processing events.
// It returns once the directories are registered; events are handled in the
// background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	registered := 0
	for _, t := range w.targets {
		n, err := addTree(fsw, t.Dir)
		if err != nil {
			w.logger.Warn("cannot watch package", zap.String("package", t.Name), zap.Error(err))
			continue
		}
		registered += n
		w.logger.Debug("watching package",
			zap.String("package", t.Name),
			zap.String("dir", t.Dir),
			zap.Strings("patterns", t.Patterns),
			zap.Int("directories", n))
	}
	if registered == 0 && len(w.targets) > 0 {
		fsw.Close()
		return errors.New("no package directories could be watched")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fs = fsw
	w.cancel = cancel
	w.running = true

	w.wg.Add(2)
	go w.loop(ctx)
	go w.dispatch(ctx)
	return nil
}

// Stop ends event processing and waits for a running rebuild to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, fsw := w.cancel, w.fs
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	w.debouncer.Stop()
	if err := fsw.Close(); err != nil {
		w.logger.Debug("closing file watcher", zap.Error(err))
	}
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	t, ok := owner(w.targets, event.Name)
	if !ok {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if rel, err := filepath.Rel(t.Dir, event.Name); err == nil && !ignored(filepath.ToSlash(rel)) {
				if _, err := addTree(w.fs, event.Name); err != nil {
					w.logger.Debug("cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
				}
			}
		}
	}

	if !Match(t.Patterns, t.Dir, event.Name) {
		return
	}
	w.logger.Debug("change detected",
		zap.String("package", t.Name),
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()))
	w.debouncer.Trigger(t.Name)
}

// dispatch runs rebuilds one at a time as keys settle.
func (w *Watcher) dispatch(ctx context.Context) {
	defer w.wg.Done()
	for {
		name, ok := w.debouncer.Next(ctx)
		if !ok {
			return
		}
		if w.out != nil {
			fmt.Fprintf(w.out, "\n%s changed, rebuilding\n", name)
		}
		if err := w.rebuild(ctx, name); err != nil {
			w.logger.Error("rebuild failed", zap.String("package", name), zap.Error(err))
		}
	}
}

// addTree registers dir and every subdirectory outside skipDirs. It returns
// the number of directories added.
func addTree(fsw *fsnotify.Watcher, dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		n++
		return nil
	})
	return n, err
}
