package assets

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

// Watcher reports audio files that change below a resource directory.
type Watcher struct {
	src      *DirSource
	watcher  *fsnotify.Watcher
	onChange func(path string)

	done chan struct{}
	once sync.Once
}

// NewWatcher watches the source root and all of its subdirectories.
// onChange receives the asset path of every written, removed or renamed
// audio file and runs on the watcher goroutine.
func NewWatcher(src *DirSource, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{src: src, watcher: fw, onChange: onChange, done: make(chan struct{})}
	if err := w.addTree(src.Root()); err != nil {
		_ = fw.Close()
		return nil, err
	}
	log.Info("Watching resource dir", "dir", src.Root())
	return w, nil
}

// Run delivers changes until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "dir", w.src.Root(), "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				log.Warn("Cannot watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !soundpool.IsSupported(event.Name) {
		return
	}
	rel, ok := w.src.Rel(event.Name)
	if !ok {
		return
	}
	log.Debug("fsnotify event", "file", rel, "event", event.Op)
	w.onChange(rel)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} { return w.done }
