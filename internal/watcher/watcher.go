// Package watcher monitors the vault for markdown file changes that
// trigger re-chunking (spec.md §3 lifecycles: "mutated when its file
// is rewritten").
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation classifies a vault file system event.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpRemove
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event is one vault filesystem change.
type Event struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher recursively watches a vault directory for markdown changes.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan Event
	errors chan error
	done   chan struct{}
}

// New starts watching root and every subdirectory it currently contains.
func New(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan Event, 256),
		errors: make(chan error, 16),
		done:   make(chan struct{}),
	}

	if err := addRecursive(fsw, root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.events)
	defer close(w.errors)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isMarkdown(ev.Name) {
				continue
			}
			op := translate(ev.Op)
			select {
			case w.events <- Event{Path: ev.Name, Operation: op, Timestamp: time.Now()}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

func translate(op fsnotify.Op) Operation {
	switch {
	case op&fsnotify.Create != 0:
		return OpCreate
	case op&fsnotify.Write != 0:
		return OpModify
	case op&fsnotify.Remove != 0:
		return OpRemove
	case op&fsnotify.Rename != 0:
		return OpRename
	default:
		return OpModify
	}
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// Events returns the channel of vault file events.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
