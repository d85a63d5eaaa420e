package timeline

import (
	"fmt"
	"math"
	"time"
)

type pinchGesture struct {
	active    bool
	last      time.Time
	startZoom float64
	acc       float64
}

// Viewport is the visible window of the timeline track, in pixels.
type Viewport struct {
	ScrollOffset float64 `json:"scroll_offset"`
	Width        float64 `json:"width"`
}

// ZoomLevel returns the current pixels-per-second scale.
func (s *Store) ZoomLevel() float64 { return s.state.ZoomLevel }

// SetZoomLevel sets the scale, clamped to [MinZoomLevel, MaxZoomLevel], and
// returns the applied value.
func (s *Store) SetZoomLevel(level float64) (float64, error) {
	if !isFinite(level) {
		return s.state.ZoomLevel, s.reject("set_zoom_level", "", fmt.Errorf("%w: non-finite zoom", ErrInvariantViolation))
	}
	s.state.ZoomLevel = clamp(level, MinZoomLevel, MaxZoomLevel)
	s.commit()
	return s.state.ZoomLevel, nil
}

func (s *Store) ZoomIn() float64 {
	z, _ := s.SetZoomLevel(s.state.ZoomLevel * ZoomStep)
	return z
}

func (s *Store) ZoomOut() float64 {
	z, _ := s.SetZoomLevel(s.state.ZoomLevel / ZoomStep)
	return z
}

func (s *Store) ResetZoom() float64 {
	z, _ := s.SetZoomLevel(DefaultZoomLevel)
	return z
}

// ZoomPercent is the zoom level relative to the default, as a percentage.
func (s *Store) ZoomPercent() int {
	return int(math.Round(s.state.ZoomLevel / DefaultZoomLevel * 100))
}

// Pinch applies one continuous zoom delta received at the given instant.
// Deltas separated by more than the pinch gap start a new gesture anchored
// at the zoom level at that moment.
func (s *Store) Pinch(delta float64, at time.Time) float64 {
	if !isFinite(delta) {
		return s.state.ZoomLevel
	}
	if !s.pinch.active || at.Sub(s.pinch.last) > s.th.PinchGap {
		s.pinch = pinchGesture{active: true, startZoom: s.state.ZoomLevel}
	}
	s.pinch.last = at
	s.pinch.acc += delta

	z, _ := s.SetZoomLevel(s.pinch.startZoom * math.Exp(-s.pinch.acc*s.th.PinchScale))
	return z
}

// TimeAtPixel converts a track x offset into global time at the given zoom.
func TimeAtPixel(x, zoomLevel float64) float64 {
	if zoomLevel <= 0 {
		return 0
	}
	return x / zoomLevel
}

// PixelAtTime converts global time into a track x offset at the given zoom.
func PixelAtTime(t, zoomLevel float64) float64 {
	return t * zoomLevel
}

// FocusScroll returns the scroll offset that keeps the time under the
// pointer fixed when the zoom changes from oldZoom to newZoom. The pointer
// offset is relative to the viewport's left edge.
func FocusScroll(scrollOffset, pointerOffset, oldZoom, newZoom float64) float64 {
	timeAtFocus := TimeAtPixel(scrollOffset+pointerOffset, oldZoom)
	return math.Max(0, PixelAtTime(timeAtFocus, newZoom)-pointerOffset)
}

// ZoomAround applies zoom through fn and returns the viewport adjusted so
// the pointer keeps pointing at the same time.
func (s *Store) ZoomAround(vp Viewport, pointerOffset float64, fn func(*Store) float64) Viewport {
	old := s.state.ZoomLevel
	updated := fn(s)
	vp.ScrollOffset = FocusScroll(vp.ScrollOffset, pointerOffset, old, updated)
	return vp
}
