// Package watcher turns file system notifications under a media root into
// settled per-path events and drives rescans from them.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a directory tree recursively.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher
	root    string

	mu      sync.Mutex
	pending map[string]*pendingEvent

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
}

// pendingEvent is a path that changed recently and has not settled yet.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

// New creates a watcher. Nothing is watched until Watch is called.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: fw,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds root and every directory beneath it.
func (w *Watcher) Watch(root string) error {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", root)
	}
	w.root = root
	return w.watchDir(root, false)
}

// watchDir adds watches for dir and its subdirectories. When announce is
// set, files found inside are reported as created; they may have been
// written before the watch existed.
func (w *Watcher) watchDir(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}

		if p != dir && w.opts.shouldIgnore(w.root, p, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			if announce {
				w.settle(p, EventCreated, false)
			}
			return nil
		}

		if err := w.watcher.Add(p); err != nil {
			w.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}
		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start processes notifications until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	// A removed path can no longer be stat'ed, so it is checked as a file.
	if w.opts.shouldIgnore(w.root, path, false) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove):
		w.settle(path, EventRemoved, false)
	case ev.Op.Has(fsnotify.Rename):
		w.settle(path, EventRenamed, false)
	case ev.Op.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			// Gone again before we looked.
			return
		}
		if info.IsDir() {
			if w.opts.shouldIgnore(w.root, path, true) {
				return
			}
			if err := w.watchDir(path, true); err != nil {
				w.sendError(err)
			}
			w.settle(path, EventCreated, true)
			return
		}
		w.settle(path, EventCreated, false)
	case ev.Op.Has(fsnotify.Write):
		w.settle(path, EventModified, false)
	}
	// Chmod alone never changes what a scan would see.
}

// settle records a change for path and (re)starts its quiet timer.
func (w *Watcher) settle(path string, typ EventType, isDir bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		p.event.Type = p.event.Type.merge(typ)
		p.event.IsDir = p.event.IsDir || isDir
		p.event.Time = now
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.flush(path) })
		return
	}

	w.pending[path] = &pendingEvent{
		event: Event{Type: typ, Path: path, IsDir: isDir, Time: now},
		timer: time.AfterFunc(w.opts.SettleDelay, func() { w.flush(path) }),
	}
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	select {
	case w.events <- p.event:
	case <-w.done:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("watcher error dropped", "error", err)
	}
}

// Stop releases the fsnotify handle and discards unsettled events.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()

		w.mu.Lock()
		for path, p := range w.pending {
			p.timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

// Events returns settled events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns errors reported by the underlying notifier.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}
