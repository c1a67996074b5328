package service

import (
	"errors"
	"math"
	"testing"

	"esp32_supervisor/internal/models"
)

func TestPositionToTemp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		y, h   float64
		expect int
	}{
		{"above top clamps to max", -50, 150, 35},
		{"below bottom clamps to min", 200, 150, 15},
		{"midpoint", 75, 150, 25},
		{"top", 0, 150, 35},
		{"bottom", 150, 150, 15},
		{"zero height", 10, 0, models.MinSetpoint},
		{"negative height", 10, -5, models.MinSetpoint},
		{"nan offset", math.NaN(), 150, models.MinSetpoint},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := PositionToTemp(tc.y, tc.h); got != tc.expect {
				t.Fatalf("PositionToTemp(%v, %v) = %d, want %d", tc.y, tc.h, got, tc.expect)
			}
		})
	}
}

func TestPositionToTemp_MonotonicAndBounded(t *testing.T) {
	t.Parallel()

	for _, h := range []float64{1, 37, 150, 333.3} {
		prev := math.MaxInt
		for y := -h; y <= 2*h; y += h / 97 {
			got := PositionToTemp(y, h)
			if got < models.MinSetpoint || got > models.MaxSetpoint {
				t.Fatalf("h=%v y=%v: %d out of range", h, y, got)
			}
			if got > prev {
				t.Fatalf("h=%v y=%v: %d increased from %d", h, y, got, prev)
			}
			prev = got
		}
	}
}

func TestTrack_RoundTrip(t *testing.T) {
	t.Parallel()

	tr := Track{TravelPx: 150, HandleSizePx: 30}
	for temp := models.MinSetpoint; temp <= models.MaxSetpoint; temp++ {
		if got := tr.PositionToTemp(tr.TempToPosition(temp)); got != temp {
			t.Fatalf("round trip of %d gave %d", temp, got)
		}
	}
	if got := tr.TempToPosition(models.MaxSetpoint); got != 15 {
		t.Fatalf("max setpoint should sit at half a handle from the top, got %v", got)
	}
}

func TestSlider_DragLifecycle(t *testing.T) {
	t.Parallel()

	var reported []int
	s := NewSlider(25, 30, func(v int) { reported = append(reported, v) })

	if err := s.Start(); !errors.Is(err, ErrTrackNotMeasured) {
		t.Fatalf("Start before layout: %v", err)
	}
	if _, err := s.Move(10); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("Move without Start: %v", err)
	}
	if err := s.End(); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("End without Start: %v", err)
	}

	s.SetTrackHeight(180)
	if g := s.Gesture(); g.HandleOffsetPx != 90 || g.Dragging {
		t.Fatalf("unexpected gesture after layout: %+v", g)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	steps := []struct {
		delta float64
		want  int
	}{
		{-75, 35},
		{-1000, 35},
		{75, 15},
		{1000, 15},
		{0, 25},
		{-30, 29},
	}
	for _, st := range steps {
		got, err := s.Move(st.delta)
		if err != nil {
			t.Fatalf("Move(%v): %v", st.delta, err)
		}
		if got != st.want {
			t.Fatalf("Move(%v) = %d, want %d", st.delta, got, st.want)
		}
	}
	if len(reported) != len(steps) {
		t.Fatalf("expected a report per move, got %v", reported)
	}
	if g := s.Gesture(); !g.Dragging || g.HandleOffsetPx != 60 {
		t.Fatalf("unexpected gesture mid-drag: %+v", g)
	}

	if err := s.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Value() != 29 || len(reported) != len(steps) {
		t.Fatalf("End must only commit: value=%d reports=%d", s.Value(), len(reported))
	}

	// the next drag starts from the committed offset
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got, _ := s.Move(0); got != 29 {
		t.Fatalf("second drag should start at 29, got %d", got)
	}
}

func TestSlider_SetAndResize(t *testing.T) {
	t.Parallel()

	var last int
	s := NewSlider(99, 30, func(v int) { last = v })
	if s.Value() != models.MaxSetpoint {
		t.Fatalf("initial value should be clamped, got %d", s.Value())
	}

	if err := s.Set(40); !errors.Is(err, ErrSetpointOutOfRange) {
		t.Fatalf("Set(40): %v", err)
	}
	if err := s.Set(30); err != nil || last != 30 {
		t.Fatalf("Set(30): err=%v last=%d", err, last)
	}

	s.SetTrackHeight(180)
	if g := s.Gesture(); g.HandleOffsetPx != 52.5 || g.Setpoint != 30 {
		t.Fatalf("unexpected gesture %+v", g)
	}
	s.SetTrackHeight(380)
	if g := s.Gesture(); g.HandleOffsetPx != 102.5 || s.Value() != 30 {
		t.Fatalf("resize must keep the setpoint: %+v", g)
	}

	// a track shorter than the handle cannot be dragged
	s.SetTrackHeight(20)
	if err := s.Start(); !errors.Is(err, ErrTrackNotMeasured) {
		t.Fatalf("Start on collapsed track: %v", err)
	}
}
