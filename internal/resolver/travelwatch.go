package resolver

import (
	"context"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/trinetra-retail/trinetra/internal/config"
)

// reloadDebounce coalesces the burst of filesystem events an editor or
// configmap update produces into one reload.
const reloadDebounce = 500 * time.Millisecond

// TravelWatcher serves the current travel matrix and hot-reloads it when
// the file changes. A reload that fails to parse keeps the previous
// matrix; the resolver never runs without one.
type TravelWatcher struct {
	path    string
	current atomic.Pointer[config.TravelMatrix]
}

func NewTravelWatcher(path string) (*TravelWatcher, error) {
	matrix, err := config.LoadTravelMatrix(path)
	if err != nil {
		return nil, err
	}
	w := &TravelWatcher{path: path}
	w.current.Store(matrix)
	return w, nil
}

// Matrix returns the matrix in effect right now.
func (w *TravelWatcher) Matrix() *config.TravelMatrix {
	return w.current.Load()
}

// Watch blocks until the context is cancelled, reloading the matrix on
// file changes. Watching the parent directory survives the
// rename-and-replace pattern most deploy tooling uses.
func (w *TravelWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err := <-watcher.Errors:
			log.Printf("[Resolver] Travel matrix watcher error: %v", err)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *TravelWatcher) reload() {
	matrix, err := config.LoadTravelMatrix(w.path)
	if err != nil {
		log.Printf("[Resolver] Travel matrix reload failed, keeping previous: %v", err)
		return
	}
	w.current.Store(matrix)
	log.Printf("[Resolver] Travel matrix reloaded from %s", w.path)
}
