package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a profiles file and delivers the re-parsed Config
// after each change, debounced. Reloads affect only clients created
// after the change; existing client instances keep the profile they
// were constructed with.
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	changes  chan *Config
	done     chan struct{}
}

// Watch starts watching the profiles file at path. The parent directory
// is watched so editor rename-and-replace saves are still observed.
func Watch(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:     path,
		debounce: debounce,
		fsw:      fsw,
		changes:  make(chan *Config, 1),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers each reloaded Config. The channel is closed when the
// watcher is closed.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Close stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.changes)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("profiles watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := Load(w.path)
			if err != nil {
				slog.Warn("profiles reload failed", "path", w.path, "error", err)
				continue
			}
			slog.Info("profiles reloaded; applies to clients created from now on", "path", w.path)
			select {
			case w.changes <- cfg:
			default:
				// Drop if the consumer is behind; the next change wins.
				select {
				case <-w.changes:
				default:
				}
				w.changes <- cfg
			}
		}
	}
}
