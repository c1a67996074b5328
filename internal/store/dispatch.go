package store

import (
	"slices"
	"sync"
	"sync/atomic"
)

// subscription is shared by both store implementations.
type subscription struct {
	id      uint64
	path    string
	handler Handler
	closed  atomic.Bool
	release func(*subscription)
}

func (s *subscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.release != nil {
		s.release(s)
	}
	return nil
}

type delivery struct {
	sub *subscription
	n   Notification
}

// dispatcher delivers notifications serially, in FIFO order, on its own
// goroutine so producers (Set, broker callbacks) never run handlers inline.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []delivery
	busy    bool
	stopped bool
	done    chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.loop()
	return d
}

func (d *dispatcher) enqueue(ds ...delivery) {
	if len(ds) == 0 {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, ds...)
	d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.stopped {
			d.mu.Unlock()
			return
		}
		next := d.queue[0]
		d.queue[0] = delivery{}
		d.queue = d.queue[1:]
		d.busy = true
		d.mu.Unlock()

		// terminal notifications are delivered even to closing subscriptions
		if next.n.Err != nil || !next.sub.closed.Load() {
			next.sub.handler(next.n)
		}

		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
		d.cond.Broadcast()
	}
}

// sync blocks until every queued notification has been handled.
// It must not be called from a handler.
func (d *dispatcher) sync() {
	d.mu.Lock()
	for len(d.queue) > 0 || d.busy {
		d.cond.Wait()
	}
	d.mu.Unlock()
}

// stop drains the queue and waits for the delivery goroutine to exit.
func (d *dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.cond.Broadcast()
	<-d.done
}

// registry tracks subscribers and the last known value per path.
type registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
	last   map[string][]byte
}

func newRegistry() *registry {
	return &registry{
		subs: make(map[string]map[uint64]*subscription),
		last: make(map[string][]byte),
	}
}

// add registers h on path and reports whether it is the first subscriber,
// together with the replay delivery for the current value, if any.
func (r *registry) add(path string, h Handler, release func(*subscription)) (*subscription, bool, []delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &subscription{id: r.nextID, path: path, handler: h, release: release}
	first := len(r.subs[path]) == 0
	if first {
		r.subs[path] = make(map[uint64]*subscription)
	}
	r.subs[path][s.id] = s

	var replay []delivery
	if v, ok := r.last[path]; ok {
		replay = append(replay, delivery{sub: s, n: Notification{Path: path, Value: v}})
	}
	return s, first, replay
}

// remove unregisters s and reports whether path has no subscribers left.
func (r *registry) remove(s *subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs[s.path]
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(r.subs, s.path)
		return true
	}
	return false
}

// drop unregisters s like remove and, once path has no subscribers left,
// forgets its last value so a later subscriber is not replayed a stale one.
func (r *registry) drop(s *subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs[s.path]
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(r.subs, s.path)
		delete(r.last, s.path)
		return true
	}
	return false
}

// publish stores value for path and returns one delivery per subscriber,
// ordered by subscription id.
func (r *registry) publish(path string, value []byte) []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[path] = value
	return r.deliveriesLocked(Notification{Path: path, Value: value}, path)
}

// terminate returns a terminal delivery for every open subscription.
func (r *registry) terminate(err error) []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery
	for path := range r.subs {
		out = append(out, r.deliveriesLocked(Notification{Path: path, Err: err}, path)...)
	}
	return out
}

func (r *registry) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.subs))
	for p := range r.subs {
		out = append(out, p)
	}
	return out
}

func (r *registry) deliveriesLocked(n Notification, path string) []delivery {
	subs := r.subs[path]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]delivery, 0, len(ids))
	for _, id := range ids {
		out = append(out, delivery{sub: subs[id], n: n})
	}
	return out
}
