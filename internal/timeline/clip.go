package timeline

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Clip is one placement of a source media window on the timeline.
//
// Three coordinate systems meet here: global timeline time (StartTime,
// EndTime), clip-local time (TrimStart, TrimEnd, both in [0, Duration]) and
// source time (SourceStart, SourceEnd, both in [0, SourceDuration]).
type Clip struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PlayablePath   string  `json:"playable_path"`
	SourceDuration float64 `json:"source_duration"`
	SourceStart    float64 `json:"source_start"`
	SourceEnd      float64 `json:"source_end"`
	Duration       float64 `json:"duration"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	TrimStart      float64 `json:"trim_start"`
	TrimEnd        float64 `json:"trim_end"`
}

// VideoExtensions lists the container formats accepted on import.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// NewFromImport builds a clip covering the whole source. Placement is left at
// zero; the Store assigns it on AddClip.
func NewFromImport(id, name, playablePath string, sourceDuration float64) (Clip, error) {
	if !isFinite(sourceDuration) || sourceDuration <= 0 {
		return Clip{}, fmt.Errorf("%w: source duration %v must be positive", ErrInvariantViolation, sourceDuration)
	}
	return Clip{
		ID:             id,
		Name:           name,
		PlayablePath:   playablePath,
		SourceDuration: sourceDuration,
		SourceStart:    0,
		SourceEnd:      sourceDuration,
		Duration:       sourceDuration,
		TrimStart:      0,
		TrimEnd:        sourceDuration,
	}, nil
}

// EffectiveDuration is the length of the marker selection. It is a preview
// value; only ConfirmDelete commits it.
func (c Clip) EffectiveDuration() float64 {
	return c.TrimEnd - c.TrimStart
}

// Contains reports whether global time t falls in [StartTime, EndTime).
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTime && t < c.EndTime
}

// SourceTimeAt maps a global timeline time onto this clip's source media,
// clamped to the committed source window.
func (c Clip) SourceTimeAt(globalTime float64) float64 {
	return clamp(c.SourceStart+(globalTime-c.StartTime), c.SourceStart, c.SourceEnd)
}

// HasTrimMarkers reports whether the markers select less than the whole clip.
func (c Clip) HasTrimMarkers(eps float64) bool {
	return c.TrimStart > eps || c.TrimEnd < c.Duration-eps
}

// Validate checks the per-clip invariants. Placement relative to siblings is
// checked by the Store.
func (c Clip) Validate() error {
	for name, v := range map[string]float64{
		"source_duration": c.SourceDuration,
		"source_start":    c.SourceStart,
		"source_end":      c.SourceEnd,
		"duration":        c.Duration,
		"start_time":      c.StartTime,
		"end_time":        c.EndTime,
		"trim_start":      c.TrimStart,
		"trim_end":        c.TrimEnd,
	} {
		if !isFinite(v) {
			return fmt.Errorf("%w: clip %s has non-finite %s", ErrInvariantViolation, c.ID, name)
		}
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: clip %s duration %v must be positive", ErrInvariantViolation, c.ID, c.Duration)
	}
	if c.SourceStart < 0 || c.SourceStart >= c.SourceEnd || c.SourceEnd > c.SourceDuration+floatNoise {
		return fmt.Errorf("%w: clip %s source window [%v, %v] outside [0, %v]",
			ErrInvariantViolation, c.ID, c.SourceStart, c.SourceEnd, c.SourceDuration)
	}
	if c.TrimStart < 0 || c.TrimStart >= c.TrimEnd || c.TrimEnd > c.Duration+floatNoise {
		return fmt.Errorf("%w: clip %s markers [%v, %v] outside [0, %v]",
			ErrInvariantViolation, c.ID, c.TrimStart, c.TrimEnd, c.Duration)
	}
	if math.Abs(c.EndTime-(c.StartTime+c.Duration)) > floatNoise {
		return fmt.Errorf("%w: clip %s end %v != start %v + duration %v",
			ErrInvariantViolation, c.ID, c.EndTime, c.StartTime, c.Duration)
	}
	return nil
}

// FormatDuration renders seconds as m:ss.cc.
func FormatDuration(seconds float64) string {
	if seconds < 0 || !isFinite(seconds) {
		seconds = 0
	}
	mins := int(seconds / 60)
	secs := int(math.Mod(seconds, 60))
	cs := int(math.Mod(seconds, 1) * 100)
	return fmt.Sprintf("%d:%02d.%02d", mins, secs, cs)
}

// floatNoise tolerates accumulated rounding in placement arithmetic.
const floatNoise = 1e-9

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
