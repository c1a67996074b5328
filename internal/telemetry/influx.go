package telemetry

import (
	"context"
	"fmt"
	"time"

	"esp32_supervisor/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurementReadings = "sensor_readings"
	measurementEvents   = "relay_events"
)

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes points synchronously to one bucket.
type InfluxSink struct {
	client influxdb2.Client
	writer pointWriter
}

var _ Sink = (*InfluxSink)(nil)

func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
	}
}

func (s *InfluxSink) WriteReading(ctx context.Context, deviceID string, r models.SensorReading) error {
	if err := s.writer.WritePoint(ctx, readingPoint(deviceID, r)); err != nil {
		return fmt.Errorf("write reading to influx: %w", err)
	}
	return nil
}

func (s *InfluxSink) WriteEvent(ctx context.Context, e models.RelayEvent) error {
	if err := s.writer.WritePoint(ctx, eventPoint(e)); err != nil {
		return fmt.Errorf("write event to influx: %w", err)
	}
	return nil
}

func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func readingPoint(deviceID string, r models.SensorReading) *write.Point {
	ts := r.ObservedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(
		measurementReadings,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{
			"lm35_temp_c":  r.LM35TempC,
			"dht11_temp_c": r.DHT11TempC,
			"humidity":     r.Humidity,
		},
		ts,
	)
}

func eventPoint(e models.RelayEvent) *write.Point {
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	tags := map[string]string{"type": e.Type}
	if e.Writer != "" {
		tags["writer"] = string(e.Writer)
	}
	fields := map[string]interface{}{"description": e.Description}
	if e.Value != nil {
		fields["value"] = *e.Value
	}
	return influxdb2.NewPoint(measurementEvents, tags, fields, ts)
}
