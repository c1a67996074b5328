// Package store defines the key/value pub-sub contract the supervisor talks to
// and two implementations of it: an in-process store and an MQTT-backed one.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is delivered as the terminal notification of every open
// subscription when a store shuts down, and returned by calls made after it.
var ErrClosed = errors.New("store: closed")

// Notification is one change event for a path. Value holds the raw JSON
// encoding of the new value. A non-nil Err is terminal: no further
// notifications follow for that subscription.
type Notification struct {
	Path  string
	Value []byte
	Err   error
}

// Handler receives notifications. Handlers run on the store's delivery
// goroutine, one at a time, in the order the store observed the changes.
type Handler func(Notification)

// Subscription is the handle returned by Subscribe. Close is idempotent and
// no new callback starts once it has returned.
type Subscription interface {
	Close() error
}

// RemoteStore is a subscribe-on-path / set-on-path key value service.
// Set is an unconditional last-write-wins write; it returns once the store
// has acknowledged it. Subscribers receive the current value (if any) right
// after subscribing and then every change, including echoes of their own writes.
type RemoteStore interface {
	Subscribe(ctx context.Context, path string, h Handler) (Subscription, error)
	Set(ctx context.Context, path string, value any) error
}

// Group owns a set of subscriptions and releases all of them exactly once.
type Group struct {
	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

// Add takes ownership of s. If the group is already closed s is closed at once.
func (g *Group) Add(s Subscription) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		_ = s.Close()
		return
	}
	g.subs = append(g.subs, s)
	g.mu.Unlock()
}

// Close releases every subscription added so far. Later calls are no-ops.
func (g *Group) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
