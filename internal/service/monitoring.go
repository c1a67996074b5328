package service

import (
	"context"
	"sync"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

// MonitoringService holds the display state: formatted readings that fall
// back to placeholders whenever the device goes offline, plus the relay
// view, setpoint and controller bookkeeping.
type MonitoringService struct {
	ingest     *IngestService
	live       *LivenessService
	relayView  *RelayViewService
	controller *ControllerService
	setpoint   func() int
	lastWrite  func() *models.LastWrite
	log        *logger.Logger

	mu       sync.Mutex
	readings models.DisplayReadings
	offline  bool

	changes *broadcaster[struct{}]
	subs    *store.Group
}

func NewMonitoringService(ingest *IngestService, live *LivenessService, relayView *RelayViewService, controller *ControllerService, setpoint func() int, lastWrite func() *models.LastWrite, log *logger.Logger) *MonitoringService {
	if lastWrite == nil {
		lastWrite = func() *models.LastWrite { return nil }
	}
	return &MonitoringService{
		ingest:     ingest,
		live:       live,
		relayView:  relayView,
		controller: controller,
		setpoint:   setpoint,
		lastWrite:  lastWrite,
		log:        logger.OrNop(log),
		readings:   PlaceholderReadings(),
		changes:    newBroadcaster[struct{}](),
		subs:       &store.Group{},
	}
}

// Start subscribes to readings, device status, the reset signal and relay view changes.
func (m *MonitoringService) Start(ctx context.Context) error {
	statusSub, err := m.live.OnStatusChange(ctx, func(st models.DeviceStatus) {
		m.mu.Lock()
		m.offline = st.State == models.Offline
		m.mu.Unlock()
	}, nil)
	if err != nil {
		return err
	}
	m.subs.Add(statusSub)

	resetSub, err := m.live.OnReset(ctx, m.reset, nil)
	if err != nil {
		_ = m.subs.Close()
		return err
	}
	m.subs.Add(resetSub)

	readingSub, err := m.ingest.OnReading(ctx, m.onReading, nil)
	if err != nil {
		_ = m.subs.Close()
		return err
	}
	m.subs.Add(readingSub)

	m.subs.Add(m.relayView.OnChange(func(models.RelayView) { m.Touch() }))
	return nil
}

func (m *MonitoringService) Close() error {
	return m.subs.Close()
}

// Touch signals listeners that something in the state changed.
func (m *MonitoringService) Touch() {
	m.changes.notify(struct{}{})
}

// Subscribe registers fn to be called on every state change.
func (m *MonitoringService) Subscribe(fn func()) store.Subscription {
	return m.changes.add(func(struct{}) { fn() })
}

// Readings returns the display form of the latest reading.
func (m *MonitoringService) Readings() models.DisplayReadings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readings
}

// GetState returns the full supervisor snapshot.
func (m *MonitoringService) GetState(ctx context.Context) (models.SupervisorState, error) {
	if err := ctx.Err(); err != nil {
		return models.SupervisorState{}, err
	}
	sp := m.setpoint()
	state := models.SupervisorState{
		Readings:        m.Readings(),
		Relay:           m.relayView.Current(),
		Setpoint:        sp,
		SetpointLabel:   FormatSetpoint(sp),
		ControllerPhase: PhaseIdle,
		LastWrite:       m.lastWrite(),
	}
	if m.controller != nil {
		state.ControllerPhase = m.controller.Snapshot().Phase
	}
	return state, nil
}

func (m *MonitoringService) onReading(r models.SensorReading) {
	m.mu.Lock()
	if m.offline {
		m.mu.Unlock()
		return
	}
	m.readings = DisplayFor(r)
	m.mu.Unlock()
	m.Touch()
}

func (m *MonitoringService) reset() {
	m.mu.Lock()
	m.readings = PlaceholderReadings()
	m.offline = true
	m.mu.Unlock()
	m.log.Infow("sensor_display_reset", "reason", "device_offline")
	m.Touch()
}
