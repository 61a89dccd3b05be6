package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is invoked with the freshly parsed configuration after
// the config file changes on disk.
type ReloadFunc func(cfg *Config)

// Watcher monitors the config file and hot-reloads it. Only a subset
// of settings takes effect without a restart (log level, push
// debounce); the reload callback decides what to apply.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	loader    *Loader
	path      string
	debounce  time.Duration
	onReload  ReloadFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(loader *Loader, configPath string, onReload ReloadFunc) (*Watcher, error) {
	if configPath == "" {
		configPath = loader.DefaultConfigPath()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		loader:    loader,
		path:      configPath,
		debounce:  200 * time.Millisecond,
		onReload:  onReload,
	}, nil
}

// Start begins watching. Editors replace files on save, so the parent
// directory is watched rather than the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// Debounce bursts of writes from editors.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := w.loader.LoadFromFile(w.path)
			if err != nil {
				continue
			}
			if err := cfg.Validate(); err != nil {
				continue
			}
			if w.onReload != nil {
				w.onReload(cfg)
			}
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
