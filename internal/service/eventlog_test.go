package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"esp32_supervisor/internal/models"
)

// fakeEventRepo is a minimal stub that satisfies the repository.EventRepo interface.
type fakeEventRepo struct {
	mu sync.Mutex

	gotFrom   time.Time
	gotTo     time.Time
	gotType   string
	gotWriter string

	events    []models.RelayEvent
	appended  []models.RelayEvent
	err       error
	appendErr error

	calls int
}

func (f *fakeEventRepo) List(_ context.Context, from, to time.Time, typ, writer string) ([]models.RelayEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom, f.gotTo, f.gotType, f.gotWriter = from, to, typ, writer
	return f.events, f.err
}

func (f *fakeEventRepo) Append(_ context.Context, e models.RelayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) appendedTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

type fakeSink struct {
	mu       sync.Mutex
	events   []models.RelayEvent
	readings []models.SensorReading
	err      error
}

func (s *fakeSink) WriteReading(_ context.Context, _ string, r models.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return s.err
}

func (s *fakeSink) WriteEvent(_ context.Context, e models.RelayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *fakeSink) Close() {}

func (s *fakeSink) readingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	in := time.Date(2025, time.August, 1, 12, 34, 56, 0, time.FixedZone("UTC+3", 3*3600))
	out := normalizeToUTC(in)
	exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC)
	if out.Location() != time.UTC || !out.Equal(exp) {
		t.Fatalf("got %v, want %v", out, exp)
	}
	if !normalizeToUTC(time.Time{}).IsZero() {
		t.Fatalf("zero time must stay zero")
	}
}

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      LogFilter
		want    LogFilter
		wantErr error
	}{
		{
			name: "normalizes type and writer",
			in:   LogFilter{Type: " auto_write ", Writer: " Manual "},
			want: LogFilter{Type: "AUTO_WRITE", Writer: "manual"},
		},
		{
			name:    "rejects inverted range",
			in:      LogFilter{From: from, To: to},
			wantErr: errInvalidTimeRange,
		},
		{
			name:    "rejects unknown writer",
			in:      LogFilter{Writer: "robot"},
			wantErr: errInvalidWriter,
		},
		{
			name: "empty filter passes",
			in:   LogFilter{},
			want: LogFilter{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeAndValidateFilter(tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestEventLogService_List_PassesNormalizedFilter(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{events: []models.RelayEvent{{EventID: "1"}}}
	svc := NewEventLogService(repo, nil, nil)

	from := time.Date(2025, 1, 1, 3, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	got, err := svc.List(context.Background(), LogFilter{From: from, Type: "manual_write", Writer: "MANUAL"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || repo.calls != 1 {
		t.Fatalf("unexpected result %v (calls=%d)", got, repo.calls)
	}
	if repo.gotFrom.Location() != time.UTC || repo.gotType != "MANUAL_WRITE" || repo.gotWriter != "manual" {
		t.Fatalf("repo got from=%v type=%q writer=%q", repo.gotFrom, repo.gotType, repo.gotWriter)
	}

	if _, err := svc.List(context.Background(), LogFilter{Writer: "nobody"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if repo.calls != 1 {
		t.Fatalf("repo must not be called on invalid filter")
	}
}

func TestEventLogService_Record_TracksLastWrite(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{appendErr: errors.New("disk full")}
	sink := &fakeSink{}
	svc := NewEventLogService(repo, sink, nil)

	if svc.LastWrite() != nil {
		t.Fatalf("expected no last write initially")
	}

	on, off := true, false
	svc.Record(context.Background(), models.RelayEvent{Type: models.EventAutoWrite, Writer: models.WriterAuto, Value: &on})
	svc.Record(context.Background(), models.RelayEvent{Type: models.EventWriteFailed, Writer: models.WriterManual, Value: &off})

	lw := svc.LastWrite()
	if lw == nil || lw.Writer != models.WriterAuto || !lw.Value {
		t.Fatalf("failed write must not replace last write, got %+v", lw)
	}

	svc.Record(context.Background(), models.RelayEvent{Type: models.EventManualWrite, Writer: models.WriterManual, Value: &off})
	if lw := svc.LastWrite(); lw.Writer != models.WriterManual || lw.Value {
		t.Fatalf("unexpected last write %+v", lw)
	}

	if len(repo.appended) != 3 || len(sink.events) != 3 {
		t.Fatalf("expected 3 appends and 3 sink events, got %d/%d", len(repo.appended), len(sink.events))
	}
	for _, e := range repo.appended {
		if e.EventID == "" || e.OccurredAt.IsZero() {
			t.Fatalf("Record must fill id and time: %+v", e)
		}
	}
}

func TestEventLogService_Record_SurvivesCancelledContext(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{}
	svc := NewEventLogService(repo, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Record(ctx, models.RelayEvent{Type: models.EventStatusChange})
	if len(repo.appended) != 1 {
		t.Fatalf("expected event to be appended after cancel")
	}
}

func TestEventLogService_WatchStatus(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	repo := &fakeEventRepo{}
	svc := NewEventLogService(repo, nil, nil)
	live := NewLivenessService(st, testPaths, nil)

	sub, err := svc.WatchStatus(context.Background(), live)
	if err != nil {
		t.Fatalf("WatchStatus: %v", err)
	}
	defer sub.Close()

	mustSet(t, st, testPaths.Status, "online")
	mustSet(t, st, testPaths.LastSeen, 1)
	mustSet(t, st, testPaths.LastSeen, 2)
	mustSet(t, st, testPaths.Status, "offline")
	st.Sync()

	got := repo.appendedTypes()
	if len(got) != 2 {
		t.Fatalf("expected 2 status changes (heartbeats ignored), got %v", got)
	}
	for _, typ := range got {
		if typ != models.EventStatusChange {
			t.Fatalf("unexpected type %s", typ)
		}
	}
}
