package internal

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type Option func(w *Watcher)

// WithCallbackFunction registers a hook. Each hook runs on its own
// goroutine and receives events in the order the OS reported them.
func WithCallbackFunction(hook func(e Event, err error)) Option {
	return func(w *Watcher) {
		w.hooks = append(w.hooks, hook)
	}
}

func WithBufferSize(size int32) Option {
	return func(w *Watcher) {
		w.bufferSize = size
	}
}

type notice struct {
	e   Event
	err error
}

// Watcher is the recursive filesystem watch primitive. Directories created
// after start are registered as they appear; hidden directories never are.
type Watcher struct {
	fw         *fsnotify.Watcher
	closed     chan struct{}
	closeOnce  sync.Once
	hooks      []func(e Event, err error)
	subs       []chan notice
	bufferSize int32
	wg         sync.WaitGroup
	root       string
}

func NewWatcher(root string, options ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fw:         fw,
		closed:     make(chan struct{}),
		subs:       make([]chan notice, 0),
		bufferSize: 25,
		root:       abs,
	}

	for _, op := range options {
		op(w)
	}

	if err = w.watchPath(abs); err != nil {
		_ = fw.Close()
		return nil, err
	}

	for _, hook := range w.hooks {
		ch := w.sub()

		go func(ch chan notice, hook func(e Event, err error)) {
			defer w.wg.Done()
			for n := range ch {
				hook(n.e, n.err)
			}
		}(ch, hook)
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

func (w *Watcher) watchPath(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() && Accepts(entry.Name()) {
			if err = w.watchPath(filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
	}

	return w.fw.Add(path)
}

func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) fanOut(n notice) {
	for i := range w.subs {
		select {
		case w.subs[i] <- n:
		case <-w.closed:
			return
		}
	}
}

func (w *Watcher) run() {
	defer func() {
		for i := range w.subs {
			close(w.subs[i])
		}
		w.wg.Done()
	}()

	for {
		select {
		case e, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if len(e.Name) == 0 { // no event !
				continue
			}
			name, ok := w.relative(e.Name)
			if !ok {
				continue
			}
			if e.Has(fsnotify.Create) && Accepts(name) {
				if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
					_ = w.watchPath(e.Name)
				}
			}
			w.fanOut(notice{e: Event{Name: name, Op: Op(e.Op)}})
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.fanOut(notice{err: err})
		case <-w.closed:
			return
		}
	}
}

func (w *Watcher) sub() chan notice {
	ch := make(chan notice, w.bufferSize)
	w.subs = append(w.subs, ch)
	w.wg.Add(1)
	return ch
}

func (w *Watcher) Root() string {
	return w.root
}

// Close stops the OS subscription and waits for all hooks to return.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed) // close local threads
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}
