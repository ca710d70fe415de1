package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/deskagent/logging"
)

// ChangeKind classifies a file-system change.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// ChangeEvent is one change detected by a Watcher.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	Path      string     `json:"path"`
	Timestamp time.Time  `json:"timestamp"`
}

func (e ChangeEvent) String() string {
	return fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05"), strings.ToUpper(string(e.Kind)), e.Path)
}

// WatcherOptions configure a Watcher.
type WatcherOptions struct {
	// Recursive watches sub-directories too, including ones created while
	// the watcher is running.
	Recursive bool
	Logger    logging.Logger
}

// Watcher monitors a directory tree and fires a callback for every created,
// modified or deleted file.
type Watcher struct {
	path      string
	callback  func(ChangeEvent)
	recursive bool
	logger    logging.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	done    chan struct{}
	running bool
}

// NewWatcher creates a Watcher for the given directory. Recursive watching
// is on by default.
func NewWatcher(path string, callback func(ChangeEvent), optFns ...func(o *WatcherOptions)) *Watcher {
	opts := WatcherOptions{
		Recursive: true,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Watcher{
		path:      path,
		callback:  callback,
		recursive: opts.Recursive,
		logger:    opts.Logger,
	}
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running for %s", w.path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := w.addTree(fsw, w.path); err != nil {
		fsw.Close()
		return err
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.done)

	w.logger.Info("file.watch.start", "path", w.path, "recursive", w.recursive)

	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()

	if !w.running {
		w.mu.Unlock()
		return
	}

	fsw, done := w.fsw, w.done
	w.fsw = nil
	w.running = false
	w.mu.Unlock()

	fsw.Close()
	<-done

	w.logger.Info("file.watch.stop", "path", w.path)
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.running
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}

			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}

			w.logger.Warn("file.watch.error", "error", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.recursive {
				if err := w.addTree(fsw, event.Name); err != nil {
					w.logger.Warn("file.watch.add", "path", event.Name, "error", err)
				}
			}

			return
		}

		w.fire(ChangeCreated, event.Name)
	case event.Has(fsnotify.Write):
		w.fire(ChangeModified, event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.fire(ChangeDeleted, event.Name)
	}
}

func (w *Watcher) fire(kind ChangeKind, path string) {
	event := ChangeEvent{Kind: kind, Path: path, Timestamp: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("file.watch.callback", "error", fmt.Sprintf("%v", r))
		}
	}()

	w.callback(event)
}

// addTree registers path, and with recursion enabled every directory below
// it, with the underlying watcher.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	if !w.recursive {
		return fsw.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Warn("file.watch.add", "path", path, "error", err)
			}
		}

		return nil
	})
}
