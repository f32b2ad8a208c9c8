package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the policy/exemption/baseline/SLO directories (plus the
// config file itself) and reloads the Loader on change. CLI-only: nothing
// in the evaluation core depends on it. Grounded on the teacher's
// internal/mdloader.Watcher.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	loader    *Loader
	callbacks []func(path, op string)
	mu        sync.Mutex
	done      chan struct{}
	logger    *slog.Logger
}

// WatchConfig creates a Watcher over loader's config file directory and
// its configured policy directories. Call Start to begin processing
// events in the background.
func WatchConfig(loader *Loader, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{fsWatcher: fsw, loader: loader, done: make(chan struct{}), logger: logger.With("component", "config.Watcher")}

	dirs := loader.Get().resolvedDirs()
	if fp := loader.FilePath(); fp != "" {
		dirs = append(dirs, filepath.Dir(fp))
	}
	for _, dir := range dirs {
		if err := w.addRecursive(dir); err != nil {
			w.logger.Warn("could not watch directory", "dir", dir, "error", err)
		}
	}
	return w, nil
}

// OnChange registers a callback invoked whenever a watched file changes.
func (w *Watcher) OnChange(fn func(path, op string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins watching in a background goroutine and returns immediately.
func (w *Watcher) Start() error {
	go w.loop()
	return nil
}

// Stop shuts the watcher down and releases its resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	op := opString(event.Op)

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
		}
	}

	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return
	}

	w.logger.Debug("config file changed", "path", path, "op", op)

	if path == w.loader.FilePath() {
		if err := w.loader.Reload(); err != nil {
			w.logger.Error("failed to reload config", "error", err)
		}
	}

	w.mu.Lock()
	cbs := make([]func(string, string), len(w.callbacks))
	copy(cbs, w.callbacks)
	w.mu.Unlock()
	for _, fn := range cbs {
		fn(path, op)
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := w.fsWatcher.Add(path); err != nil {
				w.logger.Warn("failed to add directory to watcher", "path", path, "error", err)
			}
		}
		return nil
	})
}

func opString(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return op.String()
	}
}
