// Package spool watches a drop directory for record dumps produced by
// `quarry extract` and hands settled files to the load stage.
package spool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quarry-labs/quarry-cli/internal/logger"
)

// Ext is the file extension the spool recognises.
const Ext = ".ndjson"

// loadedSuffix marks dumps that have already been ingested.
const loadedSuffix = ".loaded"

// DefaultSettle is how long a file must stay quiet before it is
// considered fully written.
const DefaultSettle = 500 * time.Millisecond

// Watcher emits paths of record dumps once they stop changing.
// Extractors rarely write a dump atomically, so every create or write
// event just restarts the file's settle clock.
type Watcher struct {
	dir    string
	settle time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	closed  bool
}

// NewWatcher creates a watcher for the given spool directory.
// A settle of zero or less uses DefaultSettle.
func NewWatcher(dir string, settle time.Duration) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spool directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spool directory: %s is not a directory", dir)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{dir: dir, settle: settle}, nil
}

// Watch starts watching and returns a channel of settled file paths.
// The channel closes when the context is cancelled or the watcher is
// closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("watcher is closed")
	}
	if w.running {
		return nil, fmt.Errorf("watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw
	w.running = true

	out := make(chan string)
	go w.loop(ctx, fsw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fsw.Close()

	// pending maps each growing file to its last event time. A ticker
	// sweep promotes files that have been quiet for the settle window.
	pending := make(map[string]time.Time)
	tick := w.settle / 4
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !eligible(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Spool watcher: %v", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// eligible reports whether the path is a visible record dump.
func eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, Ext)
}

// ListPending returns the dumps already sitting in the directory,
// sorted by name. Used to clear the backlog before watching.
func ListPending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read spool directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !eligible(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// MarkLoaded renames a processed dump so it is not picked up again.
func MarkLoaded(path string) error {
	return os.Rename(path, path+loadedSuffix)
}
