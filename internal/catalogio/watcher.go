package catalogio

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches the catalog definition file for changes and invokes a
// reload callback, debounced so a burst of writes (editors often write a
// temp file then rename) triggers one reload, grounded on the debounce
// pattern in C360Studio-semspec/processor/source-ingester/watcher.go.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   *log.Logger

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher builds a Watcher for path. onChange is invoked from a
// background goroutine after the debounce window elapses with no further
// writes.
func NewWatcher(path string, debounce time.Duration, onChange func(), logger *log.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{path: path, debounce: debounce, onChange: onChange, logger: logger, fsw: fsw}, nil
}

// Start runs the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == filepath.Clean(w.path) {
					w.scheduleReload()
				}
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Printf("catalogio: watcher error: %v", err)
			}
		}
	}()
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
