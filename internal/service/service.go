package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/repository"
	"esp32_supervisor/internal/store"
	"esp32_supervisor/internal/telemetry"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the read-only supervisor state and change notifications.
// Subscribe callbacks may run while internal locks are held: they must only
// signal and never call back into the service.
type Monitoring interface {
	GetState(ctx context.Context) (models.SupervisorState, error)
	Subscribe(fn func()) store.Subscription
}

// RelayControl is the manual override.
type RelayControl interface {
	Toggle(ctx context.Context) (bool, error)
}

// Setpoint is the gesture-driven setpoint input.
type Setpoint interface {
	Value() int
	Set(temp int) error
	SetTrackHeight(px float64)
	Start() error
	Move(deltaPx float64) (int, error)
	End() error
	Gesture() GestureState
}

// EventLog exposes the relay journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RelayEvent, error)
}

// Deps carries everything NewService needs besides the repositories.
type Deps struct {
	Store           store.RemoteStore
	Paths           store.Paths
	DeviceID        string
	LatestReadings  bool
	DefaultSetpoint int
	HandleSizePx    float64
	SigningKey      string
	TokenTTL        time.Duration
	Sink            telemetry.Sink
	Logger          *logger.Logger
}

// Service aggregates the handler-facing sub-services and owns their lifecycle.
type Service struct {
	Authorization
	Monitoring
	RelayControl
	Setpoint
	EventLog

	ingest     *IngestService
	live       *LivenessService
	controller *ControllerService
	override   *OverrideService
	relayView  *RelayViewService
	monitoring *MonitoringService
	journal    *EventLogService
	exporter   *readingExporter
	log        *logger.Logger

	subs      *store.Group
	closeOnce sync.Once
	closeErr  error
}

// NewService wires the store, repositories and telemetry into concrete services.
func NewService(repos *repository.Repository, d Deps) *Service {
	log := logger.OrNop(d.Logger)
	sink := d.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	handle := d.HandleSizePx
	if handle <= 0 {
		handle = DefaultHandleSizePx
	}
	initial := d.DefaultSetpoint
	if initial == 0 {
		initial = models.DefaultSetpoint
	}

	journal := NewEventLogService(repos.EventRepo, sink, log.Component("journal"))
	ingest := NewIngestService(d.Store, d.Paths, d.LatestReadings, log.Component("ingest"))
	live := NewLivenessService(d.Store, d.Paths, log.Component("liveness"))
	controller := NewControllerService(d.Store, d.Paths, ingest, live, journal, initial, log.Component("controller"))
	override := NewOverrideService(d.Store, d.Paths, live, journal, log.Component("override"))
	relayView := NewRelayViewService(d.Store, d.Paths, live, log.Component("relay_view"))

	slider := NewSlider(initial, handle, controller.SetSetpoint)
	monitoring := NewMonitoringService(ingest, live, relayView, controller, slider.Value, journal.LastWrite, log.Component("monitoring"))

	return &Service{
		Authorization: NewAuthService(repos.Auth, d.SigningKey, d.TokenTTL),
		Monitoring:    monitoring,
		RelayControl:  &touchingRelay{override: override, monitoring: monitoring},
		Setpoint:      &touchingSetpoint{Slider: slider, monitoring: monitoring},
		EventLog:      journal,

		ingest:     ingest,
		live:       live,
		controller: controller,
		override:   override,
		relayView:  relayView,
		monitoring: monitoring,
		journal:    journal,
		exporter:   newReadingExporter(sink, d.DeviceID, log.Component("telemetry")),
		log:        log,
		subs:       &store.Group{},
	}
}

// Start subscribes every component to the store. On error everything
// started so far is closed again.
func (s *Service) Start(ctx context.Context) error {
	starters := []struct {
		name  string
		start func(context.Context) error
		close func() error
	}{
		{"relay_view", s.relayView.Start, s.relayView.Close},
		{"override", s.override.Start, s.override.Close},
		{"controller", s.controller.Start, s.controller.Close},
		{"monitoring", s.monitoring.Start, s.monitoring.Close},
	}
	for _, st := range starters {
		if err := st.start(ctx); err != nil {
			s.log.Errorw("service_start_failed", "component", st.name, "err", err)
			_ = s.Close()
			return err
		}
		s.subs.Add(closerOf(st.close))
	}

	statusSub, err := s.journal.WatchStatus(ctx, s.live)
	if err != nil {
		_ = s.Close()
		return err
	}
	s.subs.Add(statusSub)

	readingSub, err := s.ingest.OnReading(ctx, s.exporter.offer, nil)
	if err != nil {
		_ = s.Close()
		return err
	}
	s.subs.Add(readingSub)
	s.exporter.start(ctx)
	s.log.Infow("supervisor_started")
	return nil
}

// Close stops every component. It is safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.subs.Close()
		s.exporter.stop()
	})
	return s.closeErr
}

// Controller exposes the threshold controller bookkeeping.
func (s *Service) Controller() ControllerSnapshot {
	return s.controller.Snapshot()
}

type closerOf func() error

func (c closerOf) Close() error { return c() }

// touchingSetpoint notifies monitoring listeners after every accepted change.
type touchingSetpoint struct {
	*Slider
	monitoring *MonitoringService
}

func (t *touchingSetpoint) Set(temp int) error {
	if err := t.Slider.Set(temp); err != nil {
		return err
	}
	t.monitoring.Touch()
	return nil
}

func (t *touchingSetpoint) SetTrackHeight(px float64) {
	t.Slider.SetTrackHeight(px)
	t.monitoring.Touch()
}

func (t *touchingSetpoint) Move(deltaPx float64) (int, error) {
	v, err := t.Slider.Move(deltaPx)
	if err == nil {
		t.monitoring.Touch()
	}
	return v, err
}

// touchingRelay notifies monitoring listeners when a toggle is rejected, since
// no store notification will follow.
type touchingRelay struct {
	override   *OverrideService
	monitoring *MonitoringService
}

func (t *touchingRelay) Toggle(ctx context.Context) (bool, error) {
	on, err := t.override.Toggle(ctx)
	if errors.Is(err, ErrDeviceOffline) {
		t.monitoring.Touch()
	}
	return on, err
}

// readingExporterBuffer bounds readings queued for the telemetry sink.
const readingExporterBuffer = 64

// readingExporter forwards readings to the sink off the store delivery
// goroutine. Readings are dropped while the buffer is full.
type readingExporter struct {
	sink     telemetry.Sink
	deviceID string
	log      *logger.Logger
	ch       chan models.SensorReading
	done     chan struct{}
	cancel   context.CancelFunc
	started  bool
}

func newReadingExporter(sink telemetry.Sink, deviceID string, log *logger.Logger) *readingExporter {
	return &readingExporter{
		sink:     sink,
		deviceID: deviceID,
		log:      log,
		ch:       make(chan models.SensorReading, readingExporterBuffer),
		done:     make(chan struct{}),
	}
}

func (e *readingExporter) offer(r models.SensorReading) {
	select {
	case e.ch <- r:
	default:
		e.log.Debugw("telemetry_reading_dropped", "device", e.deviceID)
	}
}

func (e *readingExporter) start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.started = true
	go func() {
		defer close(e.done)
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-e.ch:
				if err := e.sink.WriteReading(ctx, e.deviceID, r); err != nil {
					e.log.Warnw("telemetry_reading_failed", "err", err)
				}
			}
		}
	}()
}

func (e *readingExporter) stop() {
	if !e.started {
		return
	}
	e.cancel()
	<-e.done
}
