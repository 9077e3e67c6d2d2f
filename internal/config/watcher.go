package config

import (
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file and its mapping file and reloads both as
// one unit. A reload that fails to validate is logged and discarded; the
// previous snapshot stays active.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	mu       sync.RWMutex
	snapshot *Snapshot
	handlers []func(*Snapshot)
	done     chan struct{}
}

// NewWatcher loads the initial snapshot and sets up watches on the config
// file and the mapping file it references.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	snap, err := Load(path)
	if err != nil {
		w.Close()
		return nil, err
	}

	cw := &Watcher{
		path:     path,
		watcher:  w,
		snapshot: snap,
		done:     make(chan struct{}),
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(snap.Config.MappingPath(path)); err != nil {
		w.Close()
		return nil, err
	}

	return cw, nil
}

// Start starts watching for file changes
func (w *Watcher) Start() {
	go w.watch()
}

// Stop stops the watcher
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

// OnReload registers a handler to be called with each new snapshot
func (w *Watcher) OnReload(handler func(*Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Get returns the current snapshot
func (w *Watcher) Get() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Reload on write or create (some editors do atomic saves via rename)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	snap, err := Load(w.path)
	if err != nil {
		log.Printf("Failed to reload config, keeping previous: %v", err)
		return
	}

	w.mu.Lock()
	old := w.snapshot
	w.snapshot = snap
	handlers := make([]func(*Snapshot), len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	// The mapping file name may have changed; re-point the watch.
	if oldPath, newPath := old.Config.MappingPath(w.path), snap.Config.MappingPath(w.path); oldPath != newPath {
		w.watcher.Remove(oldPath)
		if err := w.watcher.Add(newPath); err != nil {
			log.Printf("Failed to watch mapping file %s: %v", newPath, err)
		}
	}

	log.Printf("Config reloaded from %s", w.path)

	for _, handler := range handlers {
		handler(snap)
	}
}
