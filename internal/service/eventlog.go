package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/models"
	"esp32_supervisor/internal/repository"
	"esp32_supervisor/internal/store"
	"esp32_supervisor/internal/telemetry"

	"github.com/google/uuid"
)

// EventLogService journals relay activity with writer attribution and
// remembers the last confirmed write.
type EventLogService struct {
	eventRepo repository.EventRepo
	sink      telemetry.Sink
	log       *logger.Logger

	mu   sync.Mutex
	last *models.LastWrite
}

func NewEventLogService(eventRepo repository.EventRepo, sink telemetry.Sink, log *logger.Logger) *EventLogService {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &EventLogService{eventRepo: eventRepo, sink: sink, log: logger.OrNop(log)}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidWriter    = errors.New("invalid writer: must be auto or manual")
)

// Record stores e. Persistence failures are logged, never returned, so
// writers are not affected by journal problems. Recording survives
// cancellation of ctx.
func (s *EventLogService) Record(ctx context.Context, e models.RelayEvent) {
	ctx = context.WithoutCancel(ctx)
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	if (e.Type == models.EventAutoWrite || e.Type == models.EventManualWrite) && e.Value != nil {
		s.mu.Lock()
		s.last = &models.LastWrite{Writer: e.Writer, Value: *e.Value, At: e.OccurredAt.UTC()}
		s.mu.Unlock()
	}

	if s.eventRepo != nil {
		if err := s.eventRepo.Append(ctx, e); err != nil {
			s.log.Errorw("journal_append_failed", "err", err, "type", e.Type)
		}
	}
	if err := s.sink.WriteEvent(ctx, e); err != nil {
		s.log.Warnw("telemetry_event_failed", "err", err, "type", e.Type)
	}
}

// LastWrite returns the most recent confirmed relay write, or nil.
func (s *EventLogService) LastWrite() *models.LastWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	lw := *s.last
	return &lw
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates them.
func normalizeAndValidateFilter(f LogFilter) (LogFilter, error) {
	out := LogFilter{
		From:   normalizeToUTC(f.From),
		To:     normalizeToUTC(f.To),
		Type:   strings.ToUpper(strings.TrimSpace(f.Type)),
		Writer: strings.ToLower(strings.TrimSpace(f.Writer)),
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, errInvalidTimeRange
	}
	switch models.Writer(out.Writer) {
	case "", models.WriterAuto, models.WriterManual:
	default:
		return LogFilter{}, errInvalidWriter
	}
	return out, nil
}

// List returns journal entries matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.RelayEvent, error) {
	nf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, nf.From, nf.To, nf.Type, nf.Writer)
}

// WatchStatus journals device status transitions. Heartbeats alone are not recorded.
func (s *EventLogService) WatchStatus(ctx context.Context, live *LivenessService) (store.Subscription, error) {
	prev := models.Unknown
	return live.OnStatusChange(ctx, func(st models.DeviceStatus) {
		if st.State == prev {
			return
		}
		from := prev
		prev = st.State
		s.Record(ctx, models.RelayEvent{
			Type:        models.EventStatusChange,
			Description: "device " + string(st.State),
			Metadata:    map[string]any{"from": string(from), "to": string(st.State)},
		})
	}, nil)
}
