package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process RemoteStore. It keeps the last value per path,
// replays it to new subscribers and echoes every Set to all subscribers of
// the path, in the order the writes were applied.
type MemoryStore struct {
	// writeMu orders publishes and replays relative to each other.
	writeMu  sync.Mutex
	reg      *registry
	dispatch *dispatcher
	closed   bool
}

// NewMemoryStore starts an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reg:      newRegistry(),
		dispatch: newDispatcher(),
	}
}

var _ RemoteStore = (*MemoryStore)(nil)

// Subscribe registers h for path. The current value, if any, is delivered first.
func (m *MemoryStore) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	sub, _, replay := m.reg.add(path, h, func(s *subscription) { m.reg.remove(s) })
	m.dispatch.enqueue(replay...)
	return sub, nil
}

// Set stores the JSON encoding of value at path and notifies subscribers.
func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", path, err)
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.dispatch.enqueue(m.reg.publish(path, b)...)
	return nil
}

// Get returns the raw value stored at path.
func (m *MemoryStore) Get(path string) ([]byte, bool) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	v, ok := m.reg.last[path]
	return v, ok
}

// Sync waits until every pending notification has been delivered.
// It must not be called from inside a handler.
func (m *MemoryStore) Sync() {
	m.dispatch.sync()
}

// Close delivers ErrClosed to every open subscription and stops delivery.
func (m *MemoryStore) Close() error {
	m.writeMu.Lock()
	if m.closed {
		m.writeMu.Unlock()
		return nil
	}
	m.closed = true
	m.dispatch.enqueue(m.reg.terminate(ErrClosed)...)
	m.writeMu.Unlock()

	m.dispatch.stop()
	return nil
}
