// Package watch provides a debounced, recursive filesystem watcher built on
// fsnotify. A single logical write from an editor or tool often produces a
// burst of events (create, write, chmod, rename of a temp file); the watcher
// coalesces per-path bursts into one notification so reconciliation runs a
// single pass per logical change.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tessera-editor/tessera/internal/logging"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 250 * time.Millisecond

// Callback receives the set of paths that changed in one coalesced burst.
type Callback func(paths []string)

// Watcher watches a project root recursively and reports write/create/rename/
// remove events after debouncing.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger

	// Directory names excluded from watching (e.g. .git, node_modules)
	ignore []string

	// dirs records every directory watch added per root, so RemoveRoot can
	// tear down the whole tree. fsnotify.Remove only drops the one named
	// watch, never descendants.
	mu       sync.Mutex
	dirs     map[string][]string
	onChange Callback

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a watcher. A zero debounce falls back to DefaultDebounce.
func New(debounce time.Duration, ignore []string, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		ignore:   ignore,
		logger:   logger.WithComponent("watch"),
		dirs:     make(map[string][]string),
		stopCh:   make(chan struct{}),
	}, nil
}

// SetCallback sets the function invoked with each coalesced burst of paths.
func (w *Watcher) SetCallback(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// AddRoot starts watching a directory tree.
func (w *Watcher) AddRoot(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	w.trackDir(root, root)
	return w.watchDirRecursive(root)
}

// RemoveRoot stops watching a directory tree, including every subdirectory
// watch added while the root was active.
func (w *Watcher) RemoveRoot(root string) {
	w.mu.Lock()
	dirs := w.dirs[root]
	delete(w.dirs, root)
	w.mu.Unlock()

	for _, dir := range dirs {
		_ = w.watcher.Remove(dir)
	}
}

// trackDir records a directory watch under its owning root.
func (w *Watcher) trackDir(root, dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirs[root] = append(w.dirs[root], dir)
}

// rootOf returns the tracked root containing path, or "".
func (w *Watcher) rootOf(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	sep := string(filepath.Separator)
	for root := range w.dirs {
		if path == root || strings.HasPrefix(path, root+sep) {
			return root
		}
	}
	return ""
}

// watchDirRecursive adds all subdirectories to the watcher.
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		base := filepath.Base(path)
		for _, ignore := range w.ignore {
			if base == ignore {
				// A matching file is skipped alone; pruning the walk is
				// only correct for a directory.
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		// Only directories can be watched with fsnotify
		if info.IsDir() && path != root {
			if err := w.watcher.Add(path); err == nil {
				w.trackDir(root, path)
			}
		}

		return nil
	})
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// watchLoop processes filesystem events with per-burst debouncing.
func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if w.ignored(event.Name) {
				continue
			}

			// New directories need their own watch to keep coverage recursive.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err == nil {
						if root := w.rootOf(event.Name); root != "" {
							w.trackDir(root, event.Name)
						}
					}
				}
			}

			pending[event.Name] = struct{}{}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})

			w.mu.Lock()
			cb := w.onChange
			w.mu.Unlock()

			if cb != nil {
				cb(paths)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// ignored reports whether a path falls under an ignored directory.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	sep := string(filepath.Separator)
	for _, ignore := range w.ignore {
		if base == ignore ||
			strings.Contains(path, sep+ignore+sep) ||
			strings.HasSuffix(path, sep+ignore) {
			return true
		}
	}
	return false
}
