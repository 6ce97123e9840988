package library

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches library directories and fires onChange after filesystem
// activity settles.
type Watcher struct {
	lib       Watched
	watcher   *fsnotify.Watcher
	onChange  func()
	debounce  time.Duration
	stopCh    chan struct{}
	mu        sync.Mutex
	lastEvent time.Time
}

// Watched is the subset of Library the watcher needs.
type Watched interface {
	Paths() []string
}

// NewWatcher creates a watcher over lib's directories. onChange runs on the
// watcher goroutine; keep it quick or hand off.
func NewWatcher(lib Watched, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		lib:      lib,
		watcher:  fsWatcher,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}, nil
}

// SetDebounce sets the settle duration before onChange fires.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start registers the library directories and begins watching. Missing
// directories are skipped.
func (w *Watcher) Start() error {
	watching := 0
	for _, dir := range w.lib.Paths() {
		if err := w.watcher.Add(dir); err != nil {
			libLog.Warn("cannot watch library path", "path", dir, "error", err)
			continue
		}
		watching++
	}
	if watching == 0 {
		libLog.Debug("no library paths to watch")
	}
	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			w.lastEvent = time.Now()
			w.mu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.mu.Lock()
				elapsed := time.Since(w.lastEvent)
				w.mu.Unlock()
				if elapsed >= w.debounce {
					w.onChange()
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			libLog.Warn("library watch error", "error", err)
		}
	}
}
