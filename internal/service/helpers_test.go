package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

var testPaths = store.NewPaths("esp32_test")

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func mustSet(t *testing.T, st store.RemoteStore, path string, v any) {
	t.Helper()
	if err := st.Set(context.Background(), path, v); err != nil {
		t.Fatalf("set %s: %v", path, err)
	}
}

func snapshot(dht float64) map[string]float64 {
	return map[string]float64{
		"lm35_temperatura":  dht + 0.4,
		"dht11_temperatura": dht,
		"dht11_humedad":     55,
	}
}

// recordingJournal captures journal entries.
type recordingJournal struct {
	mu     sync.Mutex
	events []models.RelayEvent
}

func (r *recordingJournal) Record(_ context.Context, e models.RelayEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingJournal) ofType(typ string) []models.RelayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RelayEvent
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// countingStore wraps a store and records relay writes. While failWrites is
// set every Set on the relay path fails; while gate is non-nil relay writes
// block until it is closed. ackGate is the same but holds the acknowledgement
// after the value has been published.
type countingStore struct {
	store.RemoteStore
	relayPath string

	mu         sync.Mutex
	writes     []bool
	failWrites bool
	gate       chan struct{}
	ackGate    chan struct{}
}

var errInjected = errors.New("injected write failure")

func newCountingStore(inner store.RemoteStore) *countingStore {
	return &countingStore{RemoteStore: inner, relayPath: testPaths.Relay}
}

func (c *countingStore) Set(ctx context.Context, path string, value any) error {
	if path != c.relayPath {
		return c.RemoteStore.Set(ctx, path, value)
	}
	c.mu.Lock()
	if b, ok := value.(bool); ok {
		c.writes = append(c.writes, b)
	}
	fail := c.failWrites
	gate := c.gate
	ackGate := c.ackGate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errInjected
	}
	if err := c.RemoteStore.Set(ctx, path, value); err != nil {
		return err
	}
	if ackGate != nil {
		select {
		case <-ackGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *countingStore) relayWrites() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.writes...)
}

func (c *countingStore) setFail(v bool) {
	c.mu.Lock()
	c.failWrites = v
	c.mu.Unlock()
}

func (c *countingStore) setGate(g chan struct{}) {
	c.mu.Lock()
	c.gate = g
	c.mu.Unlock()
}

func (c *countingStore) setAckGate(g chan struct{}) {
	c.mu.Lock()
	c.ackGate = g
	c.mu.Unlock()
}
