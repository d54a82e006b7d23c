package transcript

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/pders01/convo/internal/debuglog"
)

// Change is a reload of a followed transcript, or the error that prevented
// it.
type Change struct {
	Path       string
	Transcript *Transcript
	Err        error
}

// Watcher follows a single transcript file. The containing directory is
// watched so editors that replace the file on save are still seen.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	changes chan Change
	done    chan struct{}
	once    sync.Once
}

// Watch starts following path. Reloads are delivered on Changes until Close.
func Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:    abs,
		fs:      fw,
		changes: make(chan Change, 4),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes yields a Change for every write to the followed file.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) loop() {
	defer close(w.changes)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t, err := Load(w.path)
			if err != nil {
				// Partial writes fail to parse; the next write retries.
				debuglog.Debugf("transcript: reload %s: %v", w.path, err)
			}
			w.send(Change{Path: w.path, Transcript: t, Err: err})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.send(Change{Path: w.path, Err: err})
		}
	}
}

func (w *Watcher) send(c Change) {
	select {
	case w.changes <- c:
	case <-w.done:
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}
