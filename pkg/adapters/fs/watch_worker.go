package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/arbor/pkg/core"
)

// WatchWorker observes the store directory tree and emits a debounced
// core.Event for every content file written inside a note directory. It is
// a lifecycle worker so a supervisor can restart it after failures.
type WatchWorker struct {
	*worker.BaseWorker
	store     *Store
	ignores   []string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

// NewWatchWorker creates a watch worker over the store. Ignore patterns are
// doublestar globs matched against paths relative to the store directory.
func NewWatchWorker(store *Store, ignores []string, events chan<- core.Event) *WatchWorker {
	return &WatchWorker{
		BaseWorker: worker.NewBaseWorker("store-watcher"),
		store:      store,
		ignores:    ignores,
		events:     events,
	}
}

func (w *WatchWorker) Start(ctx context.Context) error {
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

	if err := w.addTargets(watcher); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *WatchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *WatchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// addTargets registers the store tree on the watcher. WalkDir does not
// follow symlinks, so link entries never register a directory twice.
func (w *WatchWorker) addTargets(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.store.Dir(), func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// shouldIgnore drops atomic-write temp files and anything matching an
// ignore pattern.
func (w *WatchWorker) shouldIgnore(name string) bool {
	if strings.HasPrefix(filepath.Base(name), TempFilePrefix) {
		return true
	}

	rel, err := filepath.Rel(w.store.Dir(), name)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.ignores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	}
	return ""
}

// processEvent filters, maps, and debounces one filesystem event. Returns
// true if the event was queued.
func (w *WatchWorker) processEvent(ctx context.Context, event fsnotify.Event) bool {
	if w.store.config.Logger != nil {
		w.store.config.Logger.Debug("event received", "name", event.Name)
	}

	if w.shouldIgnore(event.Name) {
		return false
	}

	// New directories join the watch so edits inside them are seen too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
			return false
		}
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}

	id, ok := w.store.NoteIDForPath(event.Name)
	if !ok {
		return false
	}

	w.send(ctx, core.Event{
		Type:      eType,
		ID:        id,
		Timestamp: time.Now().Unix(),
	})
	return true
}

// send enqueues an event via the debouncer, protecting against channel
// closure during shutdown.
func (w *WatchWorker) send(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			// Recover from panic if the channel was closed (worker stopping)
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

// run is the main event loop for the watch worker.
func (w *WatchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)

			if logger := w.store.config.Logger; logger != nil {
				if logger.Enabled(ctx, slog.LevelDebug) {
					logger.Error("watcher panic", "error", panicErr, "stack", string(debug.Stack()))
				} else {
					logger.Error("watcher panic", "error", panicErr)
				}
			}
			err = panicErr
		}
	}()
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// Shutdown the debouncer before returning so no in-flight timer fires
	// into a torn-down worker.
	w.debouncer.stopAndWait(5 * time.Second)

	return err
}

func (w *WatchWorker) loop(ctx context.Context) error {
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
			w.processEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			if w.store.config.Logger != nil {
				w.store.config.Logger.Error("fsnotify error", "error", wErr)
			}
		}
	}
}
