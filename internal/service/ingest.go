package service

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

// Placeholder stands in for a value with no valid reading.
const Placeholder = "--"

// rawSnapshot mirrors the payload written by the device. Fields may be absent.
type rawSnapshot struct {
	LM35  *float64 `json:"lm35_temperatura"`
	DHT11 *float64 `json:"dht11_temperatura"`
	Hum   *float64 `json:"dht11_humedad"`
}

// ParseSnapshot validates a raw sensor payload. A payload that is not an
// object, or whose three numeric fields are all absent or zero (the value the
// device sends before its first sample), yields ErrInvalidSnapshot.
// Absent fields of an accepted snapshot read as zero.
func ParseSnapshot(raw []byte, observedAt time.Time) (models.SensorReading, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return models.SensorReading{}, fmt.Errorf("%w: not an object", ErrInvalidSnapshot)
	}
	var snap rawSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.SensorReading{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if isUnset(snap.LM35) && isUnset(snap.DHT11) && isUnset(snap.Hum) {
		return models.SensorReading{}, fmt.Errorf("%w: no data yet", ErrInvalidSnapshot)
	}
	return models.SensorReading{
		LM35TempC:  deref(snap.LM35),
		DHT11TempC: deref(snap.DHT11),
		Humidity:   deref(snap.Hum),
		ObservedAt: observedAt,
	}, nil
}

// ParseLatestChild picks the last child, in key order, of an object of
// snapshots. Keys order the way the device's store orders them: integer keys
// first, numerically, then the rest (push ids) as strings.
func ParseLatestChild(raw []byte) ([]byte, error) {
	var children map[string]json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: no children", ErrInvalidSnapshot)
	}
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareChildKeys)
	return children[keys[len(keys)-1]], nil
}

func compareChildKeys(a, b string) int {
	ai, aInt := intKey(a)
	bi, bInt := intKey(b)
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi)
	case aInt:
		return -1
	case bInt:
		return 1
	}
	return strings.Compare(a, b)
}

// intKey reports whether k is a canonical 32-bit integer ("7", not "07").
func intKey(k string) (int64, bool) {
	n, err := strconv.ParseInt(k, 10, 32)
	if err != nil || strconv.FormatInt(n, 10) != k {
		return 0, false
	}
	return n, true
}

func isUnset(v *float64) bool { return v == nil || *v == 0 }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// FormatValue renders a reading with one decimal; values that round to
// zero render as Placeholder.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if s == "0.0" || s == "-0.0" {
		return Placeholder
	}
	return s
}

// FormatSetpoint renders a setpoint for display, e.g. "25°C".
func FormatSetpoint(temp int) string {
	return strconv.Itoa(temp) + "°C"
}

// DisplayFor builds the display form of r.
func DisplayFor(r models.SensorReading) models.DisplayReadings {
	at := r.ObservedAt
	return models.DisplayReadings{
		LM35TempC:  FormatValue(r.LM35TempC),
		DHT11TempC: FormatValue(r.DHT11TempC),
		Humidity:   FormatValue(r.Humidity),
		UpdatedAt:  &at,
	}
}

// PlaceholderReadings is the display state with no valid reading.
func PlaceholderReadings() models.DisplayReadings {
	return models.DisplayReadings{
		LM35TempC:  Placeholder,
		DHT11TempC: Placeholder,
		Humidity:   Placeholder,
	}
}

// IngestService turns store notifications on the readings path into
// validated SensorReadings.
type IngestService struct {
	st     store.RemoteStore
	path   string
	latest bool
	log    *logger.Logger
	now    func() time.Time
}

// NewIngestService subscribes to paths.Readings, or to paths.ReadingsList
// taking the last child when latest is true.
func NewIngestService(st store.RemoteStore, paths store.Paths, latest bool, log *logger.Logger) *IngestService {
	path := paths.Readings
	if latest {
		path = paths.ReadingsList
	}
	return &IngestService{st: st, path: path, latest: latest, log: logger.OrNop(log), now: time.Now}
}

// OnReading calls fn for every accepted snapshot. Invalid snapshots are
// dropped. A listener failure is logged and passed to onErr (if set) as a
// *SubscriptionError; no further readings follow.
func (s *IngestService) OnReading(ctx context.Context, fn func(models.SensorReading), onErr func(error)) (store.Subscription, error) {
	sub, err := s.st.Subscribe(ctx, s.path, func(n store.Notification) {
		if n.Err != nil {
			serr := &SubscriptionError{Path: n.Path, Err: n.Err}
			s.log.Errorw("sensor_subscription_failed", "path", n.Path, "err", n.Err)
			if onErr != nil {
				onErr(serr)
			}
			return
		}
		raw := n.Value
		if s.latest {
			child, err := ParseLatestChild(raw)
			if err != nil {
				s.log.Debugw("sensor_snapshot_dropped", "path", n.Path, "err", err)
				return
			}
			raw = child
		}
		reading, err := ParseSnapshot(raw, s.now())
		if err != nil {
			s.log.Debugw("sensor_snapshot_dropped", "path", n.Path, "err", err)
			return
		}
		fn(reading)
	})
	if err != nil {
		return nil, &SubscriptionError{Path: s.path, Err: err}
	}
	return sub, nil
}
