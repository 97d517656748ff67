// Package watch turns fsnotify notifications into the created / deleted /
// modified stream the tick driver consumes. The stream is best-effort and
// at-least-once: duplicate creates happen (the model absorbs them as
// no-ops) and watcher errors degrade to logged skips.
package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marcus/galaxy/internal/queue"
)

// Kind classifies a filesystem event.
type Kind int

const (
	Created Kind = iota
	Deleted
	Modified
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is one filesystem change. IsDir is only meaningful for Created;
// a deleted path can no longer be classified.
type Event struct {
	Kind  Kind
	Path  string
	IsDir bool
}

// Watcher watches a directory tree recursively and pushes events onto an
// unbounded queue.
type Watcher struct {
	fw   *fsnotify.Watcher
	out  *queue.Queue[Event]
	log  *slog.Logger
	done chan struct{}
}

// New starts watching root and every directory below it (.git excluded).
func New(root string, out *queue.Queue[Event], log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fw:   fw,
		out:  out,
		log:  log,
		done: make(chan struct{}),
	}

	if err := w.addRecursive(root, false); err != nil {
		_ = fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher and its goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

// addRecursive registers watches for root and all directories under it.
// When emit is set, a Created event is pushed for every entry found --
// used for directories that appear after the initial scan, whose contents
// may predate the watch registration.
func (w *Watcher) addRecursive(root string, emit bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Raced with a delete: skip.
			w.log.Debug("watch walk skip", "path", path, "err", err)
			return nil
		}
		if d.IsDir() && d.Name() == ".git" && path != root {
			return filepath.SkipDir
		}
		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				w.log.Debug("watch add failed", "path", path, "err", err)
			}
		}
		if emit && path != root {
			w.out.Push(Event{Kind: Created, Path: path, IsDir: d.IsDir()})
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		info, err := os.Lstat(ev.Name)
		if err != nil {
			// Path vanished before we could stat it.
			w.log.Debug("stat after create failed", "path", ev.Name, "err", err)
			return
		}
		isDir := info.IsDir()
		w.out.Push(Event{Kind: Created, Path: ev.Name, IsDir: isDir})
		if isDir {
			// A directory moved in may already hold entries fsnotify
			// never saw; surface them and extend the watch set.
			if err := w.addRecursive(ev.Name, true); err != nil {
				w.log.Debug("watch extend failed", "path", ev.Name, "err", err)
			}
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.out.Push(Event{Kind: Deleted, Path: ev.Name})
	case ev.Op.Has(fsnotify.Write):
		w.out.Push(Event{Kind: Modified, Path: ev.Name})
	}
}
