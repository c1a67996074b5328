package service

import "sync"

// closerFunc adapts a release function to store.Subscription, running it once.
type closerFunc struct {
	once sync.Once
	fn   func()
}

func (c *closerFunc) Close() error {
	c.once.Do(c.fn)
	return nil
}

// broadcaster fans a value out to local listeners.
type broadcaster[T any] struct {
	mu     sync.Mutex
	nextID uint64
	fns    map[uint64]func(T)
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{fns: make(map[uint64]func(T))}
}

func (b *broadcaster[T]) add(fn func(T)) *closerFunc {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.fns[id] = fn
	b.mu.Unlock()

	return &closerFunc{fn: func() {
		b.mu.Lock()
		delete(b.fns, id)
		b.mu.Unlock()
	}}
}

func (b *broadcaster[T]) notify(v T) {
	b.mu.Lock()
	fns := make([]func(T), 0, len(b.fns))
	for _, fn := range b.fns {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
