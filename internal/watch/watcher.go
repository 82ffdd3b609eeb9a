// Package watch monitors a model definition file for edits using fsnotify,
// so the CLI can revalidate and recompute totals on save.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change represents a detected edit of the watched model file.
type Change struct {
	Path    string
	Removed bool
}

// Watcher monitors one model file for changes. Editors typically replace the
// file rather than write it in place, so the watch is on the parent
// directory with events filtered down to the file itself, debounced.
type Watcher struct {
	Path    string
	Changes <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for the given model file.
func New(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	ch := make(chan Change, 16)
	w := &Watcher{
		Path:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	return w, nil
}

// Start begins watching the model file's directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: editors emit several events per save.
	const debounce = 100 * time.Millisecond
	var pending *Change
	var pendingAt time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending != nil {
					w.changes <- *pending
				}
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				pending = &Change{Path: w.Path, Removed: true}
				pendingAt = time.Now()
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				pending = &Change{Path: w.Path}
				pendingAt = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			if pending != nil && time.Since(pendingAt) >= debounce {
				w.changes <- *pending
				pending = nil
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next save will retrigger.
		}
	}
}
