package timeline

import "time"

const (
	DefaultMarkerEpsilon  = 0.1
	DefaultEndOfClipGuard = 0.05
	DefaultPinchGap       = 200 * time.Millisecond
	DefaultPinchScale     = 0.008

	MinZoomLevel     = 10.0
	MaxZoomLevel     = 500.0
	DefaultZoomLevel = 50.0
	ZoomStep         = 1.5
)

// Thresholds holds every tolerance the engine compares against. They are
// configuration rather than constants so boundary behaviour can be tested.
type Thresholds struct {
	// MarkerEpsilon is the minimum clip granularity: the smallest trim
	// selection and the minimum distance of a split from either clip edge.
	MarkerEpsilon float64
	// EndOfClipGuard absorbs player overshoot when detecting the end of the
	// active clip during playback.
	EndOfClipGuard float64
	// PinchGap is the idle time after which a pinch delta starts a new gesture.
	PinchGap time.Duration
	// PinchScale converts accumulated pinch delta into an exponential zoom factor.
	PinchScale float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MarkerEpsilon:  DefaultMarkerEpsilon,
		EndOfClipGuard: DefaultEndOfClipGuard,
		PinchGap:       DefaultPinchGap,
		PinchScale:     DefaultPinchScale,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MarkerEpsilon <= 0 {
		t.MarkerEpsilon = d.MarkerEpsilon
	}
	if t.EndOfClipGuard <= 0 {
		t.EndOfClipGuard = d.EndOfClipGuard
	}
	if t.PinchGap <= 0 {
		t.PinchGap = d.PinchGap
	}
	if t.PinchScale <= 0 {
		t.PinchScale = d.PinchScale
	}
	return t
}
