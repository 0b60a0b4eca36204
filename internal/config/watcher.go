package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 100 * time.Millisecond

// ConfigWatcher reloads a config file when it changes on disk. It watches
// the parent directory so editors that save by rename are picked up too.
// Only configs that pass Validate are published.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger

	changes chan *Config
	errs    chan error

	mu   sync.Mutex
	last *Config
}

// NewConfigWatcher creates a watcher for path.
func NewConfigWatcher(path string, log zerolog.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		logger:   log.With().Str("component", "config_watcher").Logger(),
		changes:  make(chan *Config, 1),
		errs:     make(chan error, 1),
	}
}

// Changes delivers validated configs. Only the newest pending one is kept.
func (w *ConfigWatcher) Changes() <-chan *Config {
	return w.changes
}

// Errors delivers load, validation and fsnotify errors.
func (w *ConfigWatcher) Errors() <-chan error {
	return w.errs
}

// Start begins watching until ctx is done. The file must exist.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("watching config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.logger.Debug().Str("path", w.path).Msg("watching config file")
	go w.loop(ctx, watcher)
	return nil
}

func (w *ConfigWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().Stringer("op", event.Op).Msg("config file changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.report(fmt.Errorf("fsnotify: %w", err))
		}
	}
}

func (w *ConfigWatcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		// Mid-rename; the Create that follows triggers another reload.
		return
	}

	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.report(fmt.Errorf("reloading %s: %w", w.path, err))
		return
	}

	w.mu.Lock()
	w.last = cfg
	w.mu.Unlock()

	w.logger.Info().Str("path", w.path).Msg("config reloaded")

	for {
		select {
		case w.changes <- cfg:
			return
		default:
		}
		select {
		case <-w.changes:
		default:
		}
	}
}

func (w *ConfigWatcher) report(err error) {
	w.logger.Error().Err(err).Msg("config reload failed")
	select {
	case w.errs <- err:
	default:
	}
}

// LastConfig returns the last config published, or nil.
func (w *ConfigWatcher) LastConfig() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
