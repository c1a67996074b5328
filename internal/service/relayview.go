package service

import (
	"context"
	"sync"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

const statusLabelUnknown = "unknown"

// RelayViewService aggregates relay field, device status and heartbeat into
// a display-ready RelayView. It never writes.
type RelayViewService struct {
	st   store.RemoteStore
	path string
	live *LivenessService
	log  *logger.Logger

	mu        sync.Mutex
	view      models.RelayView
	listeners *broadcaster[models.RelayView]
	subs      *store.Group
}

func NewRelayViewService(st store.RemoteStore, paths store.Paths, live *LivenessService, log *logger.Logger) *RelayViewService {
	return &RelayViewService{
		st:        st,
		path:      paths.Relay,
		live:      live,
		log:       logger.OrNop(log),
		view:      models.RelayView{StatusLabel: statusLabelUnknown},
		listeners: newBroadcaster[models.RelayView](),
		subs:      &store.Group{},
	}
}

func (v *RelayViewService) Start(ctx context.Context) error {
	statusSub, err := v.live.OnStatusChange(ctx, v.onStatus, nil)
	if err != nil {
		return err
	}
	v.subs.Add(statusSub)

	relaySub, err := v.st.Subscribe(ctx, v.path, v.onRelay)
	if err != nil {
		_ = v.subs.Close()
		return &SubscriptionError{Path: v.path, Err: err}
	}
	v.subs.Add(relaySub)
	return nil
}

func (v *RelayViewService) Close() error {
	return v.subs.Close()
}

// Current returns the latest aggregate.
func (v *RelayViewService) Current() models.RelayView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// OnChange registers fn for every change of the aggregate.
func (v *RelayViewService) OnChange(fn func(models.RelayView)) store.Subscription {
	return v.listeners.add(fn)
}

func (v *RelayViewService) onStatus(st models.DeviceStatus) {
	v.update(func(view *models.RelayView) {
		view.StatusLabel = string(st.State)
		if st.State == models.Unknown {
			view.StatusLabel = statusLabelUnknown
		}
		view.CanAct = st.IsOnline()
		if st.LastSeen != nil {
			at := *st.LastSeen
			view.LastUpdate = &at
		}
	})
}

func (v *RelayViewService) onRelay(n store.Notification) {
	if n.Err != nil {
		v.log.Errorw("relay_subscription_failed", "path", n.Path, "err", n.Err)
		return
	}
	on, err := parseRelay(n.Value)
	if err != nil {
		v.log.Warnw("relay_value_unrecognized", "path", n.Path, "value", string(n.Value))
		return
	}
	v.update(func(view *models.RelayView) {
		view.Known = on != nil
		view.IsOn = on != nil && *on
	})
}

func (v *RelayViewService) update(apply func(*models.RelayView)) {
	v.mu.Lock()
	apply(&v.view)
	snapshot := v.view
	v.mu.Unlock()
	v.listeners.notify(snapshot)
}
