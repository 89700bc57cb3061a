package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/classboard/classboard/errors"
	"github.com/classboard/classboard/logger"
)

// ReloadCallback is called when the watched config file is reloaded.
// It receives the freshly parsed config.
type ReloadCallback func(*Config) error

// ConfigWatcher watches a config file for changes and triggers reload
// callbacks, debounced against rapid successive writes (editors typically
// fire several events per save).
type ConfigWatcher struct {
	configPath     string
	watcher        *fsnotify.Watcher
	debouncePeriod time.Duration

	mu            sync.Mutex
	callbacks     []ReloadCallback
	debounceTimer *time.Timer
	done          chan struct{}
}

// NewConfigWatcher creates a watcher for the given config file
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch config file %s", configPath)
	}

	return &ConfigWatcher{
		configPath:     configPath,
		watcher:        watcher,
		debouncePeriod: 500 * time.Millisecond,
		done:           make(chan struct{}),
	}, nil
}

// OnReload registers a callback invoked after each successful reload
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// Start begins watching in a background goroutine
func (cw *ConfigWatcher) Start() {
	go cw.loop()
	logger.Infow("Config watcher started", "path", cw.configPath)
}

// Stop closes the watcher and cancels any pending debounce
func (cw *ConfigWatcher) Stop() {
	close(cw.done)
	cw.watcher.Close()

	cw.mu.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.mu.Unlock()
}

func (cw *ConfigWatcher) loop() {
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cw.scheduleReload()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", "error", err)
		}
	}
}

// scheduleReload debounces bursts of file events into one reload
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.debouncePeriod, cw.reload)
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadFromFile(cw.configPath)
	if err != nil {
		logger.Warnw("Config reload failed, keeping previous config",
			"path", cw.configPath,
			"error", err)
		return
	}

	cw.mu.Lock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	for _, callback := range callbacks {
		if err := callback(cfg); err != nil {
			logger.Warnw("Config reload callback failed", "error", err)
		}
	}

	logger.Infow("Config reloaded", "path", cw.configPath)
}
