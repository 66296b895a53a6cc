// Package watch keeps the catalog in sync with a proto directory: it
// reacts to filesystem events and optionally runs periodic full rescans.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/umuterturk/mcp-proto/pkg/catalog"
	"github.com/umuterturk/mcp-proto/pkg/observability"
)

// Watcher propagates .proto file changes under a root directory into a
// catalog. Events are debounced per path, so an editor writing a file in
// several chunks triggers one re-index.
type Watcher struct {
	catalog  *catalog.Catalog
	root     string
	debounce time.Duration
	log      *logrus.Logger
	metrics  *observability.Metrics

	fsw        *fsnotify.Watcher
	cron       *cron.Cron
	rescanSpec string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// WithMetrics attaches Prometheus metrics to watch events.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// WithDebounce overrides the per-path debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithRescanSchedule adds a cron schedule (robfig/cron syntax, e.g.
// "@every 10m") on which the whole root is re-indexed. Rescans catch
// changes the event stream missed.
func WithRescanSchedule(spec string) Option {
	return func(w *Watcher) {
		w.cron = cron.New()
		w.rescanSpec = spec
	}
}

// New creates a Watcher over root. Call Run to start it.
func New(cat *catalog.Catalog, root string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		catalog:  cat,
		root:     root,
		debounce: 250 * time.Millisecond,
		log:      logrus.New(),
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	return w, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.WithField("root", w.root).Info("watching for proto file changes")

	if w.cron != nil {
		if _, err := w.cron.AddFunc(w.rescanSpec, func() { w.rescan(ctx) }); err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", w.rescanSpec, err)
		}
		w.cron.Start()
		defer w.cron.Stop()
	}

	defer w.fsw.Close()
	defer w.cancelTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	w.recordEvent(event.Op)

	// New directories need their own watch before events from inside
	// them can be seen.
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			w.log.WithField("dir", event.Name).Debug("watching new directory")
			if err := w.addRecursive(event.Name); err != nil {
				w.log.WithError(err).Error("failed to watch new directory")
			}
			return
		}
	}

	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if filepath.Ext(event.Name) == ".proto" {
			w.schedule(ctx, event.Name)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.evict(ctx, event.Name)
	}
}

// evict drops a removed path from the catalog. A removed directory emits no
// per-file events for its contents, so any name that is not a .proto file is
// treated as a possible directory and every indexed file under it is
// evicted.
func (w *Watcher) evict(ctx context.Context, name string) {
	if filepath.Ext(name) == ".proto" {
		w.cancelTimer(name)
		w.log.WithField("file", name).Info("proto file removed")
		w.catalog.RemoveFile(ctx, name)
		return
	}

	prefix := name + string(filepath.Separator)
	for _, path := range w.catalog.Files() {
		if strings.HasPrefix(path, prefix) {
			w.cancelTimer(path)
			w.log.WithField("file", path).Info("proto file removed with its directory")
			w.catalog.RemoveFile(ctx, path)
		}
	}
}

// schedule arms (or re-arms) the debounce timer for a path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		// The file may be gone by the time the timer fires.
		if _, err := os.Stat(path); err != nil {
			w.catalog.RemoveFile(ctx, path)
			return
		}

		w.log.WithField("file", path).Info("re-indexing changed proto file")
		if err := w.catalog.IndexFile(ctx, path); err != nil {
			w.log.WithError(err).WithField("file", path).Error("failed to re-index file")
		}
	})
}

// rescan re-indexes the whole root. Parse failures are logged inside the
// catalog and do not abort the rescan.
func (w *Watcher) rescan(ctx context.Context) {
	w.log.WithField("root", w.root).Info("starting scheduled rescan")
	if w.metrics != nil {
		w.metrics.RescanTotal.Inc()
	}

	count, err := w.catalog.IndexDirectory(ctx, w.root)
	if err != nil {
		w.log.WithError(err).Error("scheduled rescan failed")
		return
	}
	w.log.WithField("files", count).Info("scheduled rescan complete")
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) recordEvent(op fsnotify.Op) {
	if w.metrics == nil {
		return
	}
	switch {
	case op&fsnotify.Create != 0:
		w.metrics.WatchEventsTotal.WithLabelValues("create").Inc()
	case op&fsnotify.Write != 0:
		w.metrics.WatchEventsTotal.WithLabelValues("write").Inc()
	case op&fsnotify.Remove != 0:
		w.metrics.WatchEventsTotal.WithLabelValues("remove").Inc()
	case op&fsnotify.Rename != 0:
		w.metrics.WatchEventsTotal.WithLabelValues("rename").Inc()
	}
}
