package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/semlayer/semlayer/core/logger"
)

const reloadDebounce = 500 * time.Millisecond

// configWatcher signals on reloads when the config file or a .env file next
// to it changes. Bursts of events within the debounce delay give one signal.
type configWatcher struct {
	path    string
	delay   time.Duration
	fs      *fsnotify.Watcher
	reloads chan struct{}
}

func newConfigWatcher(path string, delay time.Duration) (*configWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace files on save, so watch the directory
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}
	return &configWatcher{
		path:    path,
		delay:   delay,
		fs:      fs,
		reloads: make(chan struct{}, 1),
	}, nil
}

// run forwards relevant events until ctx is done or the watcher is closed
func (w *configWatcher) run(ctx context.Context) {
	log := logger.New("watch")
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if shouldTriggerReload(w.path, event.Name) {
				log.Debugf("%s: %s", event.Op, event.Name)
				timer.Reset(w.delay)
			}
		case <-timer.C:
			select {
			case w.reloads <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warnf("Watcher error: %v", err)
		}
	}
}

func (w *configWatcher) Close() error {
	return w.fs.Close()
}

// shouldTriggerReload matches the configuration file and .env files next to it
func shouldTriggerReload(configPath, path string) bool {
	if filepath.Clean(path) == filepath.Clean(configPath) {
		return true
	}
	base := filepath.Base(path)
	return base == ".env" || strings.HasPrefix(base, ".env.")
}
