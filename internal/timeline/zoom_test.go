package timeline

import (
	"testing"
	"time"
)

func TestZoomStepsClamp(t *testing.T) {
	s := newTestStore(t)
	if s.ZoomLevel() != DefaultZoomLevel {
		t.Fatalf("initial zoom = %v, want %v", s.ZoomLevel(), DefaultZoomLevel)
	}
	if got := s.ZoomIn(); got != 75 {
		t.Fatalf("ZoomIn() = %v, want 75", got)
	}
	for i := 0; i < 20; i++ {
		s.ZoomIn()
	}
	if s.ZoomLevel() != MaxZoomLevel {
		t.Fatalf("zoom = %v, want clamp to %v", s.ZoomLevel(), MaxZoomLevel)
	}
	for i := 0; i < 30; i++ {
		s.ZoomOut()
	}
	if s.ZoomLevel() != MinZoomLevel {
		t.Fatalf("zoom = %v, want clamp to %v", s.ZoomLevel(), MinZoomLevel)
	}
	if got := s.ResetZoom(); got != DefaultZoomLevel || s.ZoomPercent() != 100 {
		t.Fatalf("ResetZoom() = %v, percent %d", got, s.ZoomPercent())
	}
}

func TestSetZoomLevel(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 5, want: 10},
		{in: 120, want: 120},
		{in: 9000, want: 500},
	}
	for _, tc := range tests {
		s := newTestStore(t)
		got, err := s.SetZoomLevel(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("SetZoomLevel(%v) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestPinchGesture(t *testing.T) {
	s := newTestStore(t)
	t0 := time.Unix(0, 0)

	s.Pinch(-50, t0)
	z := s.Pinch(-50, t0.Add(50*time.Millisecond))
	// exp(100*0.008) * 50
	if !approxTol(z, 111.277046, 1e-3) {
		t.Fatalf("accumulated pinch zoom = %v", z)
	}

	// A long pause starts a new gesture from the current level.
	z2 := s.Pinch(50, t0.Add(time.Second))
	if !approxTol(z2, z*0.670320, 1e-3) {
		t.Fatalf("new gesture zoom = %v, want %v", z2, z*0.670320)
	}
}

func TestFocusScroll(t *testing.T) {
	tests := []struct {
		name                              string
		scroll, pointer, oldZoom, newZoom float64
		want                              float64
	}{
		{name: "zoom in keeps focus", scroll: 100, pointer: 200, oldZoom: 50, newZoom: 100, want: 400},
		{name: "zoom out clamps at zero", scroll: 0, pointer: 100, oldZoom: 100, newZoom: 10, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FocusScroll(tc.scroll, tc.pointer, tc.oldZoom, tc.newZoom); got != tc.want {
				t.Fatalf("FocusScroll() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestZoomAround(t *testing.T) {
	s := newTestStore(t)
	vp := s.ZoomAround(Viewport{ScrollOffset: 100, Width: 800}, 200, (*Store).ZoomIn)
	// time under pointer: 300/50 = 6s; at 75 px/s it sits at 450.
	if vp.ScrollOffset != 250 {
		t.Fatalf("ScrollOffset = %v, want 250", vp.ScrollOffset)
	}
	if TimeAtPixel(vp.ScrollOffset+200, s.ZoomLevel()) != 6 {
		t.Fatal("focus time moved")
	}
}

func approxTol(a, b, tol float64) bool {
	d := a - b
	return d < tol && d > -tol
}
