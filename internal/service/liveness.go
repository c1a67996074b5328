package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

// LivenessService follows the device status and heartbeat paths.
type LivenessService struct {
	st    store.RemoteStore
	paths store.Paths
	log   *logger.Logger
	now   func() time.Time
}

func NewLivenessService(st store.RemoteStore, paths store.Paths, log *logger.Logger) *LivenessService {
	return &LivenessService{st: st, paths: paths, log: logger.OrNop(log), now: time.Now}
}

// parseConnectivity decodes the status value. A removed value (null) means
// the device is gone and reads as offline.
func parseConnectivity(raw []byte) (models.Connectivity, bool) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.Unknown, false
	}
	if v == nil {
		return models.Offline, true
	}
	switch models.Connectivity(strings.ToLower(strings.TrimSpace(*v))) {
	case models.Online:
		return models.Online, true
	case models.Offline:
		return models.Offline, true
	default:
		return models.Unknown, false
	}
}

// OnStatusChange calls fn whenever the status value changes or a heartbeat
// arrives. Heartbeats stamp LastSeen with the local clock; their value is
// not interpreted.
func (s *LivenessService) OnStatusChange(ctx context.Context, fn func(models.DeviceStatus), onErr func(error)) (store.Subscription, error) {
	var (
		mu     sync.Mutex
		status models.DeviceStatus
		failed bool
	)
	fail := func(n store.Notification) {
		mu.Lock()
		first := !failed
		failed = true
		mu.Unlock()
		s.log.Errorw("liveness_subscription_failed", "path", n.Path, "err", n.Err)
		if first && onErr != nil {
			onErr(&SubscriptionError{Path: n.Path, Err: n.Err})
		}
	}

	group := &store.Group{}
	statusSub, err := s.st.Subscribe(ctx, s.paths.Status, func(n store.Notification) {
		if n.Err != nil {
			fail(n)
			return
		}
		state, ok := parseConnectivity(n.Value)
		if !ok {
			s.log.Warnw("device_status_unrecognized", "path", n.Path, "value", string(n.Value))
			return
		}
		mu.Lock()
		if status.State == state {
			mu.Unlock()
			return
		}
		status.State = state
		snapshot := status
		mu.Unlock()
		fn(snapshot)
	})
	if err != nil {
		return nil, &SubscriptionError{Path: s.paths.Status, Err: err}
	}
	group.Add(statusSub)

	seenSub, err := s.st.Subscribe(ctx, s.paths.LastSeen, func(n store.Notification) {
		if n.Err != nil {
			fail(n)
			return
		}
		if string(n.Value) == "null" {
			return
		}
		now := s.now()
		mu.Lock()
		status.LastSeen = &now
		snapshot := status
		mu.Unlock()
		fn(snapshot)
	})
	if err != nil {
		_ = group.Close()
		return nil, &SubscriptionError{Path: s.paths.LastSeen, Err: err}
	}
	group.Add(seenSub)
	return group, nil
}

// OnReset calls fn each time the device becomes offline, including the
// first status notification when that reads offline. Consumers drop
// their sensor state in response.
func (s *LivenessService) OnReset(ctx context.Context, fn func(), onErr func(error)) (store.Subscription, error) {
	prev := models.Unknown
	return s.OnStatusChange(ctx, func(st models.DeviceStatus) {
		cur := st.State
		was := prev
		prev = cur
		if cur == models.Offline && was != models.Offline {
			fn()
		}
	}, onErr)
}
