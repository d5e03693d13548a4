package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ytdigest/internal/logging"
)

const (
	defaultSettle = 500 * time.Millisecond
	listExtension = ".txt"
	doneExtension = ".done"
	failExtension = ".failed"
)

// Handler processes one reference list file. Returning an error marks the
// file failed; it is never retried automatically.
type Handler func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides how long a file must stay unchanged before it is
// handled.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// Watcher monitors a directory for reference list files (*.txt) and hands
// each one to a Handler once writes have settled. Files are handled one at a
// time; afterwards they are renamed with a .done or .failed suffix.
type Watcher struct {
	dir     string
	handler Handler
	logger  *slog.Logger
	settle  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// New constructs a watcher for dir.
func New(dir string, handler Handler, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: handler required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch directory: %w", err)
	}
	w := &Watcher{
		dir:     dir,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		settle:  defaultSettle,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run blocks until ctx is cancelled. Lists already present in the directory
// are queued first.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("add watch path: %w", err)
	}
	done := make(chan struct{})
	w.mu.Lock()
	w.done = done
	w.mu.Unlock()
	defer close(done)
	defer w.stopTimers()

	existing, err := filepath.Glob(filepath.Join(w.dir, "*"+listExtension))
	if err != nil {
		return fmt.Errorf("list existing files: %w", err)
	}
	sort.Strings(existing)
	for _, path := range existing {
		w.schedule(path)
	}

	w.logger.Info("watching for reference lists", logging.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isRefList(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("watcher error", logging.Error(err))

		case path := <-w.ready:
			w.process(ctx, path)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scheduleLocked(path)
}

// scheduleLocked replaces any pending timer for path with a fresh one. A
// replaced timer that already fired finds itself superseded and sends
// nothing, so each settle window queues path at most once. w.mu must be held.
func (w *Watcher) scheduleLocked(path string) {
	if prev, ok := w.pending[path]; ok {
		prev.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		current := w.pending[path] == timer
		if current {
			delete(w.pending, path)
		}
		done := w.done
		w.mu.Unlock()
		if !current {
			return
		}
		select {
		case w.ready <- path:
		case <-done:
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	w.logger.Info("reference list detected", logging.String("path", path))
	suffix := doneExtension
	if err := w.handler(ctx, path); err != nil {
		suffix = failExtension
		w.logger.Error("reference list failed", logging.String("path", path), logging.Error(err))
	}
	if ctx.Err() != nil {
		return
	}
	if err := os.Rename(path, path+suffix); err != nil {
		w.logger.Warn("failed to mark reference list", logging.String("path", path), logging.Error(err))
	}
}

func isRefList(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), listExtension) && !strings.HasPrefix(base, ".")
}
