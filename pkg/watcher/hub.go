package watcher

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrWatchSubscribe = errors.New("failed to subscribe to filesystem changes")
	ErrHubClosed      = errors.New("watch hub closed")
)

// SubscribeFunc is the recursive watch primitive. hook receives events
// named relative to root.
type SubscribeFunc func(root string, hook func(e internal.Event, err error)) (io.Closer, error)

// FSNotify subscribes through internal.Watcher.
func FSNotify(root string, hook func(e internal.Event, err error)) (io.Closer, error) {
	return internal.NewWatcher(root, internal.WithCallbackFunction(hook))
}

type Listener func(e internal.WatchEvent)

type Option func(h *Hub)

func WithSubscribeFunc(fn SubscribeFunc) Option {
	return func(h *Hub) {
		h.subscribe = fn
	}
}

func WithLogger(lg zerolog.Logger) Option {
	return func(h *Hub) {
		h.logger = lg
	}
}

// WithEventHook is called once per classified event before fan-out.
func WithEventHook(fn func(e internal.WatchEvent)) Option {
	return func(h *Hub) {
		h.onEvent = fn
	}
}

type entry struct {
	mu      sync.Mutex
	fn      Listener
	removed bool
}

func (en *entry) deliver(e internal.WatchEvent) {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.removed {
		return
	}
	en.fn(e)
}

type Hub struct {
	root      string
	subscribe SubscribeFunc
	onEvent   func(e internal.WatchEvent)
	logger    zerolog.Logger

	once   sync.Once
	armed  atomic.Bool
	armErr error
	closer io.Closer

	mu        sync.RWMutex
	listeners map[uuid.UUID]*entry
}

func NewHub(root string, options ...Option) *Hub {
	h := &Hub{
		root:      root,
		subscribe: FSNotify,
		logger:    zerolog.Nop(),
		listeners: make(map[uuid.UUID]*entry),
	}
	for _, op := range options {
		op(h)
	}
	return h
}

// Arm subscribes to the filesystem on the first call. Concurrent and later
// calls wait for that attempt and return its result; a failed subscription
// is not retried.
func (h *Hub) Arm() error {
	h.once.Do(func() {
		closer, err := h.subscribe(h.root, h.Dispatch)
		if err != nil {
			h.armErr = errors.Join(ErrWatchSubscribe, err)
			h.logger.Error().Err(err).Str("root", h.root).Msg("hub :: arm failed")
			return
		}
		h.closer = closer
		h.armed.Store(true)
		h.logger.Info().Str("root", h.root).Msg("hub :: watching files changed")
	})
	return h.armErr
}

func (h *Hub) Armed() bool {
	return h.armed.Load()
}

// Subscribe registers fn and returns the handle used to remove it.
func (h *Hub) Subscribe(fn Listener) uuid.UUID {
	id := uuid.New()

	h.mu.Lock()
	h.listeners[id] = &entry{fn: fn}
	h.mu.Unlock()

	return id
}

// Unsubscribe removes a listener. It waits for an in-flight delivery to
// that listener to finish; no delivery starts afterwards.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	en, ok := h.listeners[id]
	delete(h.listeners, id)
	h.mu.Unlock()

	if !ok {
		return
	}
	en.mu.Lock()
	en.removed = true
	en.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Dispatch classifies a raw event and fans it out. It is the hook handed
// to the watch primitive and may also be called directly.
func (h *Hub) Dispatch(e internal.Event, err error) {
	if err != nil {
		h.logger.Warn().Err(err).Msg("hub :: watch error")
		return
	}
	if e.Name == "" || !internal.Accepts(e.Name) {
		return
	}
	kind, ok := internal.Classify(e.Op)
	if !ok {
		return
	}

	we := internal.WatchEvent{Kind: kind, Path: e.Name}
	if h.onEvent != nil {
		h.onEvent(we)
	}

	h.mu.RLock()
	entries := make([]*entry, 0, len(h.listeners))
	for _, en := range h.listeners {
		entries = append(entries, en)
	}
	h.mu.RUnlock()

	h.logger.Debug().Str("kind", string(kind)).Str("path", e.Name).Int("listeners", len(entries)).Msg("hub :: fan out")
	for _, en := range entries {
		en.deliver(we)
	}
}

// Close releases the filesystem subscription. It is meant for process
// shutdown; a closed hub cannot be armed.
func (h *Hub) Close() error {
	h.once.Do(func() {
		h.armErr = ErrHubClosed
	})
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}
