package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/store"
)

func TestParseSnapshot(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		raw     string
		want    models.SensorReading
		wantErr bool
	}{
		{"full", `{"lm35_temperatura":26.4,"dht11_temperatura":26,"dht11_humedad":58}`,
			models.SensorReading{LM35TempC: 26.4, DHT11TempC: 26, Humidity: 58, ObservedAt: at}, false},
		{"missing fields read as zero", `{"dht11_temperatura":24.5}`,
			models.SensorReading{DHT11TempC: 24.5, ObservedAt: at}, false},
		{"all zero", `{"lm35_temperatura":0,"dht11_temperatura":0,"dht11_humedad":0}`, models.SensorReading{}, true},
		{"empty object", `{}`, models.SensorReading{}, true},
		{"null", `null`, models.SensorReading{}, true},
		{"array", `[1,2,3]`, models.SensorReading{}, true},
		{"wrong field type", `{"dht11_temperatura":"hot"}`, models.SensorReading{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSnapshot([]byte(tc.raw), at)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidSnapshot) {
					t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseLatestChild(t *testing.T) {
	t.Parallel()

	raw := `{"00000002":{"dht11_temperatura":22},"00000010":{"dht11_temperatura":30},"00000001":{"dht11_temperatura":20}}`
	child, err := ParseLatestChild([]byte(raw))
	if err != nil {
		t.Fatalf("ParseLatestChild: %v", err)
	}
	r, err := ParseSnapshot(child, time.Time{})
	if err != nil || r.DHT11TempC != 30 {
		t.Fatalf("expected last child (30), got %+v err=%v", r, err)
	}

	for _, bad := range []string{`{}`, `null`, `"x"`} {
		if _, err := ParseLatestChild([]byte(bad)); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("%s: expected ErrInvalidSnapshot, got %v", bad, err)
		}
	}
}

func TestParseLatestChild_IntegerKeysOrderNumerically(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"numeric", `{"9":{"dht11_temperatura":9},"10":{"dht11_temperatura":10},"2":{"dht11_temperatura":2}}`, 10},
		{"strings after integers", `{"100":{"dht11_temperatura":1},"-NxA1":{"dht11_temperatura":2},"7":{"dht11_temperatura":3}}`, 2},
		{"leading zero is a string", `{"10":{"dht11_temperatura":1},"09":{"dht11_temperatura":2}}`, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			child, err := ParseLatestChild([]byte(tc.raw))
			if err != nil {
				t.Fatalf("ParseLatestChild: %v", err)
			}
			r, err := ParseSnapshot(child, time.Time{})
			if err != nil || r.DHT11TempC != tc.want {
				t.Fatalf("got %+v err=%v, want temperature %v", r, err, tc.want)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		26.44: "26.4",
		26:    "26.0",
		0:     Placeholder,
		0.04:  Placeholder,
		-0.04: Placeholder,
		-3.26: "-3.3",
	}
	for in, want := range cases {
		if got := FormatValue(in); got != want {
			t.Errorf("FormatValue(%v) = %q, want %q", in, got, want)
		}
	}
	if got := FormatSetpoint(25); got != "25°C" {
		t.Errorf("FormatSetpoint(25) = %q", got)
	}
}

func TestDisplayFor(t *testing.T) {
	t.Parallel()

	at := time.Now()
	d := DisplayFor(models.SensorReading{LM35TempC: 27.3, DHT11TempC: 0, Humidity: 60, ObservedAt: at})
	if d.LM35TempC != "27.3" || d.DHT11TempC != Placeholder || d.Humidity != "60.0" {
		t.Fatalf("unexpected display %+v", d)
	}
	if d.UpdatedAt == nil || !d.UpdatedAt.Equal(at) {
		t.Fatalf("UpdatedAt not set")
	}
	if p := PlaceholderReadings(); p.UpdatedAt != nil || p.Humidity != Placeholder {
		t.Fatalf("unexpected placeholder %+v", p)
	}
}

func collectReadings(t *testing.T, svc *IngestService) (func() []models.SensorReading, store.Subscription) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []models.SensorReading
	)
	sub, err := svc.OnReading(context.Background(), func(r models.SensorReading) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("OnReading: %v", err)
	}
	return func() []models.SensorReading {
		mu.Lock()
		defer mu.Unlock()
		return append([]models.SensorReading(nil), got...)
	}, sub
}

func TestIngestService_InitialSnapshot(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	mustSet(t, st, testPaths.Readings, snapshot(23))

	svc := NewIngestService(st, testPaths, false, nil)
	readings, sub := collectReadings(t, svc)
	defer sub.Close()

	mustSet(t, st, testPaths.Readings, map[string]float64{"dht11_temperatura": 0})
	mustSet(t, st, testPaths.Readings, "garbage")
	mustSet(t, st, testPaths.Readings, snapshot(27))
	st.Sync()

	got := readings()
	if len(got) != 2 || got[0].DHT11TempC != 23 || got[1].DHT11TempC != 27 {
		t.Fatalf("expected replay then one valid update, got %+v", got)
	}

	_ = sub.Close()
	mustSet(t, st, testPaths.Readings, snapshot(30))
	st.Sync()
	if len(readings()) != 2 {
		t.Fatalf("no readings expected after Close")
	}
}

func TestIngestService_LatestChild(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewIngestService(st, testPaths, true, nil)
	readings, sub := collectReadings(t, svc)
	defer sub.Close()

	mustSet(t, st, testPaths.ReadingsList, map[string]any{
		"a": snapshot(20),
		"b": snapshot(21),
	})
	mustSet(t, st, testPaths.ReadingsList, map[string]any{})
	st.Sync()

	got := readings()
	if len(got) != 1 || got[0].DHT11TempC != 21 {
		t.Fatalf("expected the last child only, got %+v", got)
	}
}

func TestIngestService_SubscriptionFailure(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	svc := NewIngestService(st, testPaths, false, nil)

	errCh := make(chan error, 1)
	sub, err := svc.OnReading(context.Background(), func(models.SensorReading) {}, func(err error) { errCh <- err })
	if err != nil {
		t.Fatalf("OnReading: %v", err)
	}
	defer sub.Close()

	_ = st.Close()
	select {
	case err := <-errCh:
		var serr *SubscriptionError
		if !errors.As(err, &serr) || !errors.Is(err, store.ErrClosed) {
			t.Fatalf("expected SubscriptionError wrapping ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no failure reported")
	}

	if _, err := svc.OnReading(context.Background(), func(models.SensorReading) {}, nil); err == nil {
		t.Fatalf("subscribing to a closed store should fail")
	}
}
