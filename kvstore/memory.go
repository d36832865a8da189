package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend keeps one gateway group in process. Every KVStore sharing
// the backend sees the others' writes on its watch, as with etcd.
type MemoryBackend struct {
	c *cache.Cache

	mutex    *sync.Mutex
	watchers map[*memoryWatcher]struct{}
	locker   *semaphoreLocker
}

func NewMemoryBackend() (*MemoryBackend, error) {
	return &MemoryBackend{
		c: cache.New(cache.NoExpiration, cache.NoExpiration),

		mutex:    &sync.Mutex{},
		watchers: map[*memoryWatcher]struct{}{},
		locker:   newSemaphoreLocker(),
	}, nil
}

func (m *MemoryBackend) Put(key, value string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.c.Set(key, value, cache.NoExpiration)
	m.notify(Event{Type: EventTypePut, Key: key, Value: value})
	return nil
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	value, exists := m.c.Get(key)
	if !exists {
		return "", false, nil
	}
	return value.(string), true, nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.c.Get(key); !exists {
		return nil
	}
	m.c.Delete(key)
	m.notify(Event{Type: EventTypeDelete, Key: key})
	return nil
}

func (m *MemoryBackend) List(prefix string) (map[string]string, error) {
	ret := map[string]string{}
	for key, item := range m.c.Items() {
		if strings.HasPrefix(key, prefix) {
			ret[key] = item.Object.(string)
		}
	}
	return ret, nil
}

// Keys is used by tests and debugging output.
func (m *MemoryBackend) Keys() []string {
	keys := []string{}
	for key := range m.c.Items() {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryBackend) Watch(ctx context.Context, prefix string, cb func(events []Event)) {
	w := &memoryWatcher{
		prefix: prefix,
		cb:     cb,
		signal: make(chan struct{}, 1),
		mutex:  &sync.Mutex{},
	}

	m.mutex.Lock()
	m.watchers[w] = struct{}{}
	m.mutex.Unlock()

	go func() {
		w.run(ctx)
		m.mutex.Lock()
		delete(m.watchers, w)
		m.mutex.Unlock()
	}()
}

// notify queues ev for every watcher. Caller holds m.mutex.
func (m *MemoryBackend) notify(ev Event) {
	for w := range m.watchers {
		if strings.HasPrefix(ev.Key, w.prefix) {
			w.push(ev)
		}
	}
}

func (m *MemoryBackend) Locker() Locker {
	return m.locker
}

func (m *MemoryBackend) Close() error {
	return nil
}

// memoryWatcher queues events without bound so writers never wait on a slow
// callback.
type memoryWatcher struct {
	prefix string
	cb     func(events []Event)
	signal chan struct{}

	mutex   *sync.Mutex
	pending []Event
}

func (w *memoryWatcher) push(ev Event) {
	w.mutex.Lock()
	w.pending = append(w.pending, ev)
	w.mutex.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *memoryWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
		}
		w.mutex.Lock()
		events := w.pending
		w.pending = nil
		w.mutex.Unlock()
		if len(events) != 0 {
			w.cb(events)
		}
	}
}

type semaphoreLocker struct {
	sem chan struct{}
}

// NewLocalLocker returns a Locker that only serializes callers of this
// process.
func NewLocalLocker() Locker {
	return newSemaphoreLocker()
}

func newSemaphoreLocker() *semaphoreLocker {
	return &semaphoreLocker{sem: make(chan struct{}, 1)}
}

func (l *semaphoreLocker) Lock(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *semaphoreLocker) Unlock(ctx context.Context) error {
	select {
	case <-l.sem:
	default:
	}
	return nil
}
