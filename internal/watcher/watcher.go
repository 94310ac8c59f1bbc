// Package watcher provides file system watching with debouncing for local
// resource directories. It is a development aid: the loader itself never
// retries a failed fetch, but a host can observe change notifications and
// re-enqueue the affected resources.
package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a resource directory and reports which resource files
// changed, coalescing bursts of writes into a single notification.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	dir        string
	extensions []string
	debounce   time.Duration
	onChange   chan []string
	done       chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Dir is the resource directory to watch.
	Dir string

	// Extensions filters events to resource files ("[.js]" by default).
	Extensions []string

	// DebounceDur coalesces rapid successive changes.
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Extensions:  []string{".js"},
		DebounceDur: 1 * time.Second,
	}
}

// New creates a resource directory watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = []string{".js"}
	}
	debounce := cfg.DebounceDur
	if debounce <= 0 {
		debounce = time.Second
	}

	return &Watcher{
		fsWatcher:  fsw,
		dir:        cfg.Dir,
		extensions: extensions,
		debounce:   debounce,
		onChange:   make(chan []string, 1),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching the directory. The returned channel receives the
// sorted set of changed resource paths after each debounce window.
func (w *Watcher) Start() (<-chan []string, error) {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var timer *time.Timer
	changed := make(map[string]struct{})

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			changed[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			if len(changed) == 0 {
				continue
			}
			paths := make([]string, 0, len(changed))
			for path := range changed {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			changed = make(map[string]struct{})

			// Non-blocking send - drop if the host is not keeping up
			select {
			case w.onChange <- paths:
			default:
			}

		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}

		case <-w.done:
			return
		}
	}
}

// isRelevantEvent reports whether the event concerns a resource file.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, allowed := range w.extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
