package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/store"
)

// ----------- Simulation constants -----------
const (
	AmbientC          = 28.0 // room temperature with the relay off, °C
	CooledFloorC      = 18.0 // lowest temperature the relay load can reach, °C
	CoolRateCPerSec   = 0.15 // °C per second while the relay is on
	WarmRateCPerSec   = 0.05 // °C per second drift back to ambient
	LM35OffsetC       = 0.4  // the LM35 reads slightly above the DHT11
	BaseHumidity      = 55.0 // %RH at ambient
	HumidityPerC      = 1.5  // %RH gained per °C of cooling
	SensorNoiseC      = 0.1
	maxReadingHistory = 20
)

// SimulatorService plays the device on a store: it reports online, sends
// heartbeats and readings every tick, and follows the relay field, cooling
// the room while the relay is on.
type SimulatorService struct {
	st     store.RemoteStore
	paths  store.Paths
	latest bool
	log    *logger.Logger

	mu       sync.Mutex
	tempC    float64
	relayOn  bool
	seq      int
	history  map[string]map[string]float64
	rnd      *rand.Rand
	lastTick time.Time
}

// NewSimulatorService returns a simulator starting at ambient temperature.
func NewSimulatorService(st store.RemoteStore, paths store.Paths, latest bool, log *logger.Logger) *SimulatorService {
	return &SimulatorService{
		st:      st,
		paths:   paths,
		latest:  latest,
		log:     logger.OrNop(log),
		tempC:   AmbientC,
		history: make(map[string]map[string]float64),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run ticks at the given interval until ctx is canceled, then reports the
// device offline.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	sub, err := s.st.Subscribe(ctx, s.paths.Relay, func(n store.Notification) {
		if n.Err != nil {
			return
		}
		if v, err := parseRelay(n.Value); err == nil && v != nil {
			s.mu.Lock()
			s.relayOn = *v
			s.mu.Unlock()
		}
	})
	if err != nil {
		s.log.Errorw("simulator_subscribe_failed", "err", err)
		return
	}
	defer func() { _ = sub.Close() }()

	if err := s.st.Set(ctx, s.paths.Status, "online"); err != nil {
		s.log.Errorw("simulator_status_failed", "err", err)
		return
	}
	s.log.Infow("simulator_started", "tick", tick)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.st.Set(context.Background(), s.paths.Status, "offline"); err != nil {
				s.log.Debugw("simulator_offline_failed", "err", err)
			}
			return
		case now := <-t.C:
			if err := s.tick(ctx, now); err != nil {
				s.log.Warnw("simulator_publish_failed", "err", err)
			}
		}
	}
}

// tick advances the model and publishes heartbeat and reading.
func (s *SimulatorService) tick(ctx context.Context, now time.Time) error {
	payload, path := s.step(now)
	if err := s.st.Set(ctx, s.paths.LastSeen, now.Unix()); err != nil {
		return err
	}
	return s.st.Set(ctx, path, payload)
}

// step advances the temperature by the time since the previous tick and
// returns the payload to publish and its path.
func (s *SimulatorService) step(now time.Time) (any, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := 0.0
	if !s.lastTick.IsZero() {
		elapsed = now.Sub(s.lastTick).Seconds()
	}
	s.lastTick = now
	s.advance(elapsed)

	dht := round1(s.tempC + s.noise())
	snap := map[string]float64{
		"dht11_temperatura": dht,
		"lm35_temperatura":  round1(s.tempC + LM35OffsetC + s.noise()),
		"dht11_humedad":     round1(BaseHumidity + (AmbientC-s.tempC)*HumidityPerC),
	}
	if !s.latest {
		return snap, s.paths.Readings
	}

	s.seq++
	s.history[fmt.Sprintf("%08d", s.seq)] = snap
	delete(s.history, fmt.Sprintf("%08d", s.seq-maxReadingHistory))
	children := make(map[string]map[string]float64, len(s.history))
	for k, v := range s.history {
		children[k] = v
	}
	return children, s.paths.ReadingsList
}

// advance applies elapsed seconds of cooling or warming.
func (s *SimulatorService) advance(elapsed float64) {
	if s.relayOn {
		s.tempC = maxFloat(s.tempC-CoolRateCPerSec*elapsed, CooledFloorC)
		return
	}
	s.tempC = math.Min(s.tempC+WarmRateCPerSec*elapsed, AmbientC)
}

func (s *SimulatorService) noise() float64 {
	return (s.rnd.Float64()*2 - 1) * SensorNoiseC
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
