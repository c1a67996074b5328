package service

import (
	"math"
	"sync"

	"esp32_supervisor/internal/models"
)

// DefaultHandleSizePx is the height of the slider handle when none is configured.
const DefaultHandleSizePx = 30.0

// PositionToTemp maps an offset on a vertical track of height trackHeightPx
// to a setpoint. The top of the track is MaxSetpoint and the bottom is
// MinSetpoint; offsets outside the track are clamped, so the result is always
// within [MinSetpoint, MaxSetpoint]. A track without height maps to MinSetpoint.
func PositionToTemp(yOffsetPx, trackHeightPx float64) int {
	return Track{TravelPx: trackHeightPx}.PositionToTemp(yOffsetPx)
}

// Track describes a slider track: the distance the handle center can travel
// and the handle size. Offsets are measured from the top of the track to the
// handle center, so they range over [HandleSizePx/2, TravelPx+HandleSizePx/2].
type Track struct {
	TravelPx     float64
	HandleSizePx float64
}

func (t Track) half() float64 { return t.HandleSizePx / 2 }

// PositionToTemp converts a handle-center offset into a setpoint.
func (t Track) PositionToTemp(yOffsetPx float64) int {
	if t.TravelPx <= 0 || math.IsNaN(yOffsetPx) {
		return models.MinSetpoint
	}
	pos := clampFloat(yOffsetPx-t.half(), 0, t.TravelPx)
	inverted := t.TravelPx - pos
	temp := inverted/t.TravelPx*float64(models.MaxSetpoint-models.MinSetpoint) + float64(models.MinSetpoint)
	return clampInt(int(math.Round(temp)), models.MinSetpoint, models.MaxSetpoint)
}

// TempToPosition is the inverse mapping: the handle-center offset for temp.
func (t Track) TempToPosition(temp int) float64 {
	temp = clampInt(temp, models.MinSetpoint, models.MaxSetpoint)
	frac := float64(models.MaxSetpoint-temp) / float64(models.MaxSetpoint-models.MinSetpoint)
	return t.half() + frac*math.Max(t.TravelPx, 0)
}

// GestureState is the externally visible state of the slider.
type GestureState struct {
	TrackHeightPx  float64 `json:"track_height_px"`
	HandleOffsetPx float64 `json:"handle_offset_px"`
	Dragging       bool    `json:"dragging"`
	Setpoint       int     `json:"setpoint"`
}

// Slider turns start/move/end drag events on a vertical track into setpoint
// changes (Idle → Dragging → Idle). It holds the session setpoint.
// onChange is called synchronously on every accepted change and must not
// call back into the Slider.
type Slider struct {
	mu         sync.Mutex
	handleSize float64
	trackPx    float64 // measured height, 0 until laid out
	offset     float64 // committed handle-center offset
	base       float64 // offset captured at drag start
	current    float64 // transient offset during a drag
	dragging   bool
	value      int
	onChange   func(int)
}

// NewSlider returns a slider holding initial (clamped into range).
func NewSlider(initial int, handleSizePx float64, onChange func(int)) *Slider {
	if handleSizePx < 0 {
		handleSizePx = 0
	}
	if onChange == nil {
		onChange = func(int) {}
	}
	return &Slider{
		handleSize: handleSizePx,
		value:      clampInt(initial, models.MinSetpoint, models.MaxSetpoint),
		onChange:   onChange,
	}
}

func (s *Slider) track() Track {
	return Track{TravelPx: s.trackPx - s.handleSize, HandleSizePx: s.handleSize}
}

// Value returns the current setpoint.
func (s *Slider) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Gesture returns the current track and handle state.
func (s *Slider) Gesture() GestureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	off := s.offset
	if s.dragging {
		off = s.current
	}
	return GestureState{
		TrackHeightPx:  s.trackPx,
		HandleOffsetPx: off,
		Dragging:       s.dragging,
		Setpoint:       s.value,
	}
}

// SetTrackHeight records a new layout height and re-derives the handle
// offset from the current setpoint. The setpoint itself does not change.
func (s *Slider) SetTrackHeight(px float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if px < 0 || math.IsNaN(px) {
		px = 0
	}
	s.trackPx = px
	s.offset = s.track().TempToPosition(s.value)
	if s.dragging {
		s.base = s.offset
		s.current = s.offset
	}
}

// Start begins a drag from the current handle offset.
func (s *Slider) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track().TravelPx <= 0 {
		return ErrTrackNotMeasured
	}
	s.dragging = true
	s.base = s.offset
	s.current = s.offset
	return nil
}

// Move applies a drag delta relative to the start position. The handle
// offset is clamped to the track before conversion and the resulting
// setpoint is reported on every call, even when unchanged.
func (s *Slider) Move(deltaPx float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging {
		return s.value, ErrNotDragging
	}
	t := s.track()
	s.current = clampFloat(s.base+deltaPx, t.half(), t.half()+t.TravelPx)
	s.value = t.PositionToTemp(s.current)
	s.onChange(s.value)
	return s.value, nil
}

// End commits the transient offset. It has no other side effect.
func (s *Slider) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging {
		return ErrNotDragging
	}
	s.offset = s.current
	s.base = 0
	s.dragging = false
	return nil
}

// Set assigns a setpoint directly (numeric entry) and moves the handle to match.
func (s *Slider) Set(temp int) error {
	if temp < models.MinSetpoint || temp > models.MaxSetpoint {
		return ErrSetpointOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = temp
	s.offset = s.track().TempToPosition(temp)
	if s.dragging {
		s.base = s.offset
		s.current = s.offset
	}
	s.onChange(temp)
	return nil
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
