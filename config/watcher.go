package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce collapses the burst of events editors emit on save.
const defaultDebounce = 300 * time.Millisecond

// Watcher reloads configuration when the project config file changes.
// Each successful reload produces a fresh snapshot; the previous one is never mutated.
type Watcher struct {
	loader   *Loader
	path     string
	debounce time.Duration
	onChange func(*Config)
	logger   *slog.Logger

	mu      sync.Mutex
	current *Config
}

// NewWatcher creates a watcher for the loader's project config file.
// onChange is called with every valid reloaded config.
func NewWatcher(loader *Loader, initial *Config, onChange func(*Config), logger *slog.Logger) (*Watcher, error) {
	path := loader.ProjectConfigPath()
	if path == "" {
		return nil, fmt.Errorf("no project config file to watch")
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	return &Watcher{
		loader:   loader,
		path:     abs,
		debounce: defaultDebounce,
		onChange: onChange,
		logger:   logger,
		current:  initial,
	}, nil
}

// Current returns the most recent valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that editors which replace the file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	w.logger.Info("Config watcher started", "path", w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Config watcher error", "error", err)

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

// reload loads a new snapshot and keeps the old one when the file is invalid.
// The file is parsed first because an auto-discovered project file that
// fails to parse is skipped by Load rather than reported.
func (w *Watcher) reload() {
	if _, err := LoadFromFile(w.path); err != nil {
		w.logger.Warn("Ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("Ignoring invalid config change", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("Config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
