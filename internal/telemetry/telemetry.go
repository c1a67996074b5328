// Package telemetry mirrors sensor readings and journal events into a
// time-series backend.
package telemetry

import (
	"context"

	"esp32_supervisor/internal/models"
)

// Sink receives readings and journal events. Implementations must be safe
// for concurrent use.
type Sink interface {
	WriteReading(ctx context.Context, deviceID string, r models.SensorReading) error
	WriteEvent(ctx context.Context, e models.RelayEvent) error
	Close()
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) WriteReading(context.Context, string, models.SensorReading) error { return nil }
func (NopSink) WriteEvent(context.Context, models.RelayEvent) error              { return nil }
func (NopSink) Close()                                                           {}
