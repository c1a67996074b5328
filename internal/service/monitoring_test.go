package service

import (
	"context"
	"sync/atomic"
	"testing"

	"esp32_supervisor/internal/models"
)

func startMonitoring(t *testing.T) (*MonitoringService, *atomic.Int32, func(string, any), func()) {
	t.Helper()
	mem := newTestStore(t)
	ingest := NewIngestService(mem, testPaths, false, nil)
	live := NewLivenessService(mem, testPaths, nil)
	relayView := NewRelayViewService(mem, testPaths, live, nil)
	slider := NewSlider(25, 30, nil)
	journal := NewEventLogService(&fakeEventRepo{}, nil, nil)
	mon := NewMonitoringService(ingest, live, relayView, nil, slider.Value, journal.LastWrite, nil)

	if err := relayView.Start(context.Background()); err != nil {
		t.Fatalf("relay view Start: %v", err)
	}
	t.Cleanup(func() { _ = relayView.Close() })
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = mon.Close() })

	touches := &atomic.Int32{}
	sub := mon.Subscribe(func() { touches.Add(1) })
	t.Cleanup(func() { _ = sub.Close() })

	set := func(path string, v any) { mustSet(t, mem, path, v) }
	return mon, touches, set, mem.Sync
}

func TestMonitoringService_GetState(t *testing.T) {
	t.Parallel()

	mon, _, set, sync := startMonitoring(t)

	state, err := mon.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Readings.DHT11TempC != Placeholder || state.Setpoint != 25 || state.SetpointLabel != "25°C" {
		t.Fatalf("unexpected initial state %+v", state)
	}
	if state.ControllerPhase != PhaseIdle || state.LastWrite != nil {
		t.Fatalf("unexpected controller fields %+v", state)
	}

	set(testPaths.Status, "online")
	set(testPaths.Relay, true)
	set(testPaths.Readings, snapshot(26))
	sync()

	state, _ = mon.GetState(context.Background())
	if state.Readings.DHT11TempC != "26.0" || state.Readings.LM35TempC != "26.4" || state.Readings.Humidity != "55.0" {
		t.Fatalf("unexpected readings %+v", state.Readings)
	}
	if !state.Relay.IsOn || !state.Relay.CanAct {
		t.Fatalf("unexpected relay view %+v", state.Relay)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mon.GetState(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestMonitoringService_ResetOnOffline(t *testing.T) {
	t.Parallel()

	mon, touches, set, sync := startMonitoring(t)

	set(testPaths.Status, "online")
	set(testPaths.Readings, snapshot(27))
	sync()
	if mon.Readings().DHT11TempC != "27.0" {
		t.Fatalf("expected reading to be shown")
	}

	before := touches.Load()
	set(testPaths.Status, "offline")
	sync()
	if got := mon.Readings(); got.DHT11TempC != Placeholder || got.UpdatedAt != nil {
		t.Fatalf("expected placeholders after offline, got %+v", got)
	}
	if touches.Load() <= before {
		t.Fatalf("reset must notify listeners")
	}

	// readings from an offline device are not shown
	set(testPaths.Readings, snapshot(28))
	sync()
	if mon.Readings().DHT11TempC != Placeholder {
		t.Fatalf("offline readings must be ignored")
	}

	set(testPaths.Status, "online")
	set(testPaths.Readings, snapshot(29))
	sync()
	if mon.Readings().DHT11TempC != "29.0" {
		t.Fatalf("expected fresh reading after reconnect, got %+v", mon.Readings())
	}
}

func TestMonitoringService_LastWrite(t *testing.T) {
	t.Parallel()

	ingest := NewIngestService(newTestStore(t), testPaths, false, nil)
	journal := NewEventLogService(&fakeEventRepo{}, nil, nil)
	live := NewLivenessService(newTestStore(t), testPaths, nil)
	relayView := NewRelayViewService(newTestStore(t), testPaths, live, nil)
	mon := NewMonitoringService(ingest, live, relayView, nil, func() int { return 30 }, journal.LastWrite, nil)

	on := true
	journal.Record(context.Background(), models.RelayEvent{Type: models.EventManualWrite, Writer: models.WriterManual, Value: &on})

	state, err := mon.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.LastWrite == nil || state.LastWrite.Writer != models.WriterManual || !state.LastWrite.Value {
		t.Fatalf("unexpected last write %+v", state.LastWrite)
	}
	if state.SetpointLabel != "30°C" {
		t.Fatalf("unexpected label %s", state.SetpointLabel)
	}
}
