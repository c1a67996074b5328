package service

import (
	"context"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

// OverrideService is the manual writer of the relay field. It keeps its own
// view of the relay, refreshed by every store notification, and never
// coordinates with the threshold controller directly.
type OverrideService struct {
	st      store.RemoteStore
	path    string
	live    *LivenessService
	journal Recorder
	log     *logger.Logger

	mu     sync.Mutex
	status models.Connectivity
	isOn   bool

	// toggleMu serialises toggles so each one flips the result of the previous.
	toggleMu sync.Mutex
	subs     *store.Group
}

func NewOverrideService(st store.RemoteStore, paths store.Paths, live *LivenessService, journal Recorder, log *logger.Logger) *OverrideService {
	return &OverrideService{
		st:      st,
		path:    paths.Relay,
		live:    live,
		journal: journal,
		log:     logger.OrNop(log),
		subs:    &store.Group{},
	}
}

// Start subscribes to device status and the relay field.
func (o *OverrideService) Start(ctx context.Context) error {
	statusSub, err := o.live.OnStatusChange(ctx, func(st models.DeviceStatus) {
		o.mu.Lock()
		o.status = st.State
		o.mu.Unlock()
	}, nil)
	if err != nil {
		return err
	}
	o.subs.Add(statusSub)

	relaySub, err := o.st.Subscribe(ctx, o.path, func(n store.Notification) {
		if n.Err != nil {
			o.log.Errorw("relay_subscription_failed", "path", n.Path, "err", n.Err)
			return
		}
		v, err := parseRelay(n.Value)
		if err != nil || v == nil {
			return
		}
		o.mu.Lock()
		o.isOn = *v
		o.mu.Unlock()
	})
	if err != nil {
		_ = o.subs.Close()
		return &SubscriptionError{Path: o.path, Err: err}
	}
	o.subs.Add(relaySub)
	return nil
}

// Close releases the subscriptions.
func (o *OverrideService) Close() error {
	return o.subs.Close()
}

// IsOn returns the displayed relay state.
func (o *OverrideService) IsOn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isOn
}

// Toggle writes the inverse of the displayed relay state. It is rejected with
// ErrDeviceOffline unless the device is online. On a failed write the
// displayed state is left unchanged and a *WriteError is returned; there is
// no retry. The returned bool is the displayed state after the call.
func (o *OverrideService) Toggle(ctx context.Context) (bool, error) {
	o.toggleMu.Lock()
	defer o.toggleMu.Unlock()

	o.mu.Lock()
	online := o.status == models.Online
	current := o.isOn
	o.mu.Unlock()

	if !online {
		o.log.Infow("relay_toggle_rejected", "reason", "device_offline")
		o.journal.Record(ctx, models.RelayEvent{
			OccurredAt:  time.Now().UTC(),
			Type:        models.EventToggleRejected,
			Writer:      models.WriterManual,
			Description: "manual toggle rejected: device offline",
		})
		return current, ErrDeviceOffline
	}

	next := !current
	if err := o.st.Set(ctx, o.path, next); err != nil {
		werr := &WriteError{Path: o.path, Value: next, Err: err}
		o.log.Errorw("relay_write_failed", "writer", models.WriterManual, "err", werr)
		o.journal.Record(ctx, models.RelayEvent{
			OccurredAt:  time.Now().UTC(),
			Type:        models.EventWriteFailed,
			Writer:      models.WriterManual,
			Value:       &next,
			Description: "manual relay write failed: " + err.Error(),
		})
		return current, werr
	}

	o.mu.Lock()
	o.isOn = next
	o.mu.Unlock()

	o.log.Infow("relay_write_confirmed", "writer", models.WriterManual, "value", next)
	o.journal.Record(ctx, models.RelayEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventManualWrite,
		Writer:      models.WriterManual,
		Value:       &next,
		Description: describeRelay(next, "operator"),
	})
	return next, nil
}
