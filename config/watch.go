package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aydenstechdungeon/formfield/internal/telemetry"
	"github.com/fsnotify/fsnotify"
)

// ReloadDelay debounces bursts of file events into one reload.
var ReloadDelay = 200 * time.Millisecond

// Watch reloads path whenever it changes and hands each valid result to fn.
// Invalid files are logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *telemetry.Logger, fn func(*Config)) error {
	if logger == nil {
		logger = telemetry.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debugf("config file %s: %s", event.Op, event.Name)

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(ReloadDelay, func() {
				cfg, err := Load(abs)
				if err != nil {
					logger.WithError(err).Error("config reload failed")
					return
				}
				logger.Infof("config reloaded (%d forms)", len(cfg.Forms))
				fn(cfg)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("config watcher error")
		}
	}
}
