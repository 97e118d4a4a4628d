package fs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/memosync/pkg/core"
)

// watchWorker invalidates the store index when documents change outside of a pass.
type watchWorker struct {
	*worker.BaseWorker
	store   *Store
	events  chan<- core.Event
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func newWatchWorker(store *Store, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		store:      store,
		events:     events,
	}
}

// Watch starts a worker that marks the index stale whenever a markdown file under
// the root is created, modified or removed by someone else. Changes are forwarded
// to events when it is not nil; the caller owns the channel and must keep draining
// it until the worker stops.
func (s *Store) Watch(ctx context.Context, events chan<- core.Event) (worker.Worker, error) {
	w := newWatchWorker(s, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.store.recursiveAdd(watcher, w.store.Path); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// recursiveAdd registers dir and every directory below it, except the system dir.
func (s *Store) recursiveAdd(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == s.config.SystemDir {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.store.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
			if w.store.config.ErrorHandler != nil {
				w.store.config.ErrorHandler(wErr)
			}
		}
	}
}

func (w *watchWorker) handle(ctx context.Context, event fsnotify.Event) {
	rel, err := filepath.Rel(w.store.Path, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel == w.store.config.SystemDir || w.store.ignored(rel) {
		return
	}

	// New directories (a new month, a resources folder) must be watched too.
	if event.Has(fsnotify.Create) {
		if isDir, err := statDir(event.Name); err == nil && isDir {
			if err := w.store.recursiveAdd(w.watcher, event.Name); err != nil {
				w.store.config.Logger.Debug("directory not watched", "path", rel, "error", err)
			}
			return
		}
	}

	if !strings.EqualFold(filepath.Ext(rel), ".md") {
		return
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
	case event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
	default:
		return
	}

	w.store.config.Logger.Debug("document changed", "path", rel, "type", eType)
	w.store.Invalidate()

	if w.events == nil {
		return
	}
	select {
	case w.events <- core.Event{Type: eType, Path: rel, Timestamp: time.Now().Unix()}:
	case <-ctx.Done():
	}
}
