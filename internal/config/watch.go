package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vpnarch/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is invoked with the freshly loaded configuration after the
// config file has been written.
type ChangeHandler func(cfg *Config)

// Watch watches the config file at path until ctx is done, reloading it
// after each burst of writes. The parent directory is watched rather than
// the file so editors that replace the file atomically are handled too.
func Watch(ctx context.Context, path string, onChange ChangeHandler) error {
	if path == "" {
		return fmt.Errorf("config watch: empty path")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config watch: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("config watch: %w", err)
	}

	go watchLoop(ctx, fsWatcher, path, onChange)
	return nil
}

func watchLoop(ctx context.Context, fsWatcher *fsnotify.Watcher, path string, onChange ChangeHandler) {
	defer fsWatcher.Close()

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce.Reset(DefaultWatchDebounce)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("config watcher error", "error", err)

		case <-debounce.C:
			cfg, err := LoadFrom(path)
			if err != nil {
				logging.Warn("config reload failed", "path", path, "error", err)
				continue
			}
			logging.Info("config reloaded", "path", path, "provider", cfg.API.GetProvider())
			onChange(cfg)
		}
	}
}
