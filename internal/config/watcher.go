package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file and notifies subscribers when it
// changes on disk. The running process keeps its startup configuration;
// subscribers decide what is safe to pick up live.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handlers []func(*Config)
	mu       sync.Mutex
	debounce time.Duration
}

// NewWatcher creates a watcher for the given config path.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		watcher:  w,
		debounce: 500 * time.Millisecond,
	}, nil
}

// OnChange registers a handler invoked with the freshly loaded config.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Start begins watching until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	// Watch the directory: editors replace files rather than write them.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of events from a single save.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload skipped: file no longer validates", "error", err)
		return
	}

	slog.Info("config file changed, notifying subscribers", "path", w.path)
	w.mu.Lock()
	handlers := append([]func(*Config)(nil), w.handlers...)
	w.mu.Unlock()
	for _, fn := range handlers {
		fn(cfg)
	}
}
