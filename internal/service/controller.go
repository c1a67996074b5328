package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

// Controller phases.
const (
	PhaseIdle       = "idle"       // no trusted reading
	PhaseEvaluating = "evaluating" // has a reading and a setpoint
)

// ShouldBeOn is the threshold rule: the relay is on at or above the setpoint.
func ShouldBeOn(dht11TempC float64, setpoint int) bool {
	return dht11TempC >= float64(setpoint)
}

// Recorder receives journal entries. It must not block for long and never fails.
type Recorder interface {
	Record(ctx context.Context, e models.RelayEvent)
}

// parseRelay decodes the relay field. null means no value.
func parseRelay(raw []byte) (*bool, error) {
	var v *bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ControllerSnapshot is the controller's bookkeeping, for display.
type ControllerSnapshot struct {
	Phase         string `json:"phase"`
	Setpoint      int    `json:"setpoint"`
	LastConfirmed *bool  `json:"last_confirmed,omitempty"`
	Pending       *bool  `json:"pending,omitempty"`
}

// ControllerService derives the relay command from the latest reading and
// the setpoint and writes it when it differs from the last confirmed value.
//
// The confirmed value follows every notification on the relay field, so
// writes by the manual override are picked up as ground truth. An
// acknowledged write only sets it when no notification arrived since the
// write was issued; otherwise the notification already holds the newer
// value. A failed write leaves it untouched, so the next reading or
// setpoint change tries again.
type ControllerService struct {
	st      store.RemoteStore
	path    string
	ingest  *IngestService
	live    *LivenessService
	journal Recorder
	log     *logger.Logger

	mu        sync.Mutex
	reading   *models.SensorReading
	setpoint  int
	status    models.Connectivity
	confirmed *bool
	inFlight  *bool
	writeSeq  uint64
	relaySeq  uint64 // notifications seen on the relay field

	ctx    context.Context
	cancel context.CancelFunc
	subs   *store.Group
	writes sync.WaitGroup
}

func NewControllerService(st store.RemoteStore, paths store.Paths, ingest *IngestService, live *LivenessService, journal Recorder, setpoint int, log *logger.Logger) *ControllerService {
	return &ControllerService{
		st:       st,
		path:     paths.Relay,
		ingest:   ingest,
		live:     live,
		journal:  journal,
		log:      logger.OrNop(log),
		setpoint: clampInt(setpoint, models.MinSetpoint, models.MaxSetpoint),
		subs:     &store.Group{},
	}
}

// Start subscribes to readings, device status and the relay field.
// Writes issued later run under a context derived from ctx.
func (c *ControllerService) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	statusSub, err := c.live.OnStatusChange(ctx, c.onStatus, nil)
	if err != nil {
		return err
	}
	c.subs.Add(statusSub)

	relaySub, err := c.st.Subscribe(ctx, c.path, c.onRelay)
	if err != nil {
		_ = c.Close()
		return &SubscriptionError{Path: c.path, Err: err}
	}
	c.subs.Add(relaySub)

	readingSub, err := c.ingest.OnReading(ctx, c.onReading, nil)
	if err != nil {
		_ = c.Close()
		return err
	}
	c.subs.Add(readingSub)
	return nil
}

// Close releases the subscriptions, cancels pending writes and waits for them.
func (c *ControllerService) Close() error {
	err := c.subs.Close()
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.writes.Wait()
	return err
}

// SetSetpoint updates the threshold and re-evaluates.
func (c *ControllerService) SetSetpoint(temp int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setpoint = clampInt(temp, models.MinSetpoint, models.MaxSetpoint)
	c.evaluateLocked()
}

// Snapshot returns the current phase and write bookkeeping.
func (c *ControllerService) Snapshot() ControllerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	phase := PhaseIdle
	if c.reading != nil {
		phase = PhaseEvaluating
	}
	return ControllerSnapshot{
		Phase:         phase,
		Setpoint:      c.setpoint,
		LastConfirmed: copyBool(c.confirmed),
		Pending:       copyBool(c.inFlight),
	}
}

func (c *ControllerService) onReading(r models.SensorReading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == models.Offline {
		// stale data from a device known to be unreachable
		return
	}
	c.reading = &r
	c.evaluateLocked()
}

func (c *ControllerService) onStatus(st models.DeviceStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == st.State {
		return
	}
	c.status = st.State
	if st.State == models.Offline {
		c.reading = nil
		return
	}
	c.evaluateLocked()
}

func (c *ControllerService) onRelay(n store.Notification) {
	if n.Err != nil {
		c.log.Errorw("relay_subscription_failed", "path", n.Path, "err", n.Err)
		return
	}
	v, err := parseRelay(n.Value)
	if err != nil {
		c.log.Warnw("relay_value_unrecognized", "path", n.Path, "value", string(n.Value))
		return
	}
	c.mu.Lock()
	c.confirmed = v
	c.relaySeq++
	c.mu.Unlock()
}

// evaluateLocked issues a write when the desired command differs from the
// pending write, or, with nothing pending, from the confirmed value.
func (c *ControllerService) evaluateLocked() {
	if c.reading == nil || c.status != models.Online || c.ctx == nil {
		return
	}
	want := ShouldBeOn(c.reading.DHT11TempC, c.setpoint)
	if c.inFlight != nil {
		if *c.inFlight == want {
			return
		}
	} else if c.confirmed != nil && *c.confirmed == want {
		return
	}

	c.writeSeq++
	seq := c.writeSeq
	c.inFlight = &want
	meta := map[string]any{
		"dht11_temp_c": c.reading.DHT11TempC,
		"setpoint":     c.setpoint,
	}
	ctx := c.ctx
	c.writes.Add(1)
	go c.write(ctx, seq, c.relaySeq, want, meta)
}

func (c *ControllerService) write(ctx context.Context, seq, relaySeq uint64, value bool, meta map[string]any) {
	defer c.writes.Done()
	err := c.st.Set(ctx, c.path, value)

	c.mu.Lock()
	if seq == c.writeSeq {
		c.inFlight = nil
		if err == nil && relaySeq == c.relaySeq {
			c.confirmed = &value
		}
	}
	c.mu.Unlock()

	now := time.Now().UTC()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.log.Infow("relay_write_cancelled", "value", value)
		} else {
			werr := &WriteError{Path: c.path, Value: value, Err: err}
			c.log.Errorw("relay_write_failed", "writer", models.WriterAuto, "err", werr)
		}
		c.journal.Record(ctx, models.RelayEvent{
			OccurredAt:  now,
			Type:        models.EventWriteFailed,
			Writer:      models.WriterAuto,
			Value:       &value,
			Description: "automatic relay write failed: " + err.Error(),
			Metadata:    meta,
		})
		return
	}
	c.log.Infow("relay_write_confirmed", "writer", models.WriterAuto, "value", value, "setpoint", meta["setpoint"])
	c.journal.Record(ctx, models.RelayEvent{
		OccurredAt:  now,
		Type:        models.EventAutoWrite,
		Writer:      models.WriterAuto,
		Value:       &value,
		Description: describeRelay(value, "threshold"),
		Metadata:    meta,
	})
}

func describeRelay(on bool, by string) string {
	if on {
		return "relay switched on by " + by
	}
	return "relay switched off by " + by
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
