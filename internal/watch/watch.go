// Package watch keeps the project registry synchronized with the
// filesystem. It runs one watch session over the current project roots,
// coalesces bursts of manifest events inside a debounce window, and forwards
// each changed project directory to a reconcile callback.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/xmit-co/bob/internal/manifest"
)

const (
	// DefaultDebounce is the window within which manifest events coalesce.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultRescan is how often the tracked path set is re-checked when
	// nothing else re-arms the watch.
	DefaultRescan = 5 * time.Second
)

// Watcher owns the fsnotify session. fsnotify delivers events from its own
// blocked worker through channels; everything here stays in ordinary
// goroutines fed by those channels.
type Watcher struct {
	fw       *fsnotify.Watcher
	logger   *log.Logger
	window   time.Duration
	rescan   time.Duration
	paths    func() []string
	onChange func(dir string)

	mu      sync.Mutex
	watched map[string]bool
	pending map[string]bool
	timer   *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher. paths supplies the current non-empty project roots
// on every (re-)arm; onChange receives the directory of each debounced
// manifest event.
func New(window, rescan time.Duration, logger *log.Logger, paths func() []string, onChange func(dir string)) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounce
	}
	if rescan <= 0 {
		rescan = DefaultRescan
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fw:       fw,
		logger:   logger,
		window:   window,
		rescan:   rescan,
		paths:    paths,
		onChange: onChange,
		watched:  make(map[string]bool),
		pending:  make(map[string]bool),
		done:     make(chan struct{}),
	}, nil
}

// Start arms the watch and begins the event loop.
func (w *Watcher) Start() {
	w.Rearm()
	w.wg.Add(1)
	go w.loop()
}

// Rearm synchronizes the watch set with the current project roots: added
// paths begin being watched, removed paths are released. Paths that fail to
// watch are logged and abandoned.
func (w *Watcher) Rearm() {
	want := make(map[string]bool)
	for _, p := range w.paths() {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			continue
		}
		want[p] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.watched {
		if !want[p] {
			if err := w.fw.Remove(p); err != nil {
				w.logger.Debug("failed to release watch", "path", p, "err", err)
			}
			delete(w.watched, p)
		}
	}
	for p := range want {
		if w.watched[p] {
			continue
		}
		if err := w.fw.Add(p); err != nil {
			w.logger.Warn("failed to watch project directory", "path", p, "err", err)
			continue
		}
		w.watched[p] = true
	}
}

// loop consumes raw events until Close. Manifest events reset the debounce
// timer; a rescan tick re-arms the watch so structural changes to the path
// set are eventually picked up even without an explicit Rearm.
func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.rescan)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != manifest.Filename {
				continue
			}
			w.logger.Debug("manifest event, debouncing", "file", event.Name, "op", event.Op)
			w.mark(filepath.Dir(event.Name))

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "err", err)

		case <-ticker.C:
			w.Rearm()
		}
	}
}

// mark records a changed directory and resets the debounce timer.
func (w *Watcher) mark(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[dir] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.flush)
}

// flush delivers every pending directory exactly once.
func (w *Watcher) flush() {
	w.mu.Lock()
	dirs := make([]string, 0, len(w.pending))
	for dir := range w.pending {
		dirs = append(dirs, dir)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, dir := range dirs {
		w.onChange(dir)
	}
}

// Close stops the event loop and releases the underlying watch session.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}
