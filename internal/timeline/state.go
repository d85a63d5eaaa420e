package timeline

import (
	"fmt"
	"math"
)

type TrimType string

const (
	TrimIn  TrimType = "in"
	TrimOut TrimType = "out"
)

func ParseTrimType(s string) (TrimType, error) {
	switch TrimType(s) {
	case TrimIn, TrimOut:
		return TrimType(s), nil
	default:
		return "", fmt.Errorf("trim type must be %q or %q, got %q", TrimIn, TrimOut, s)
	}
}

// State is a snapshot of the timeline. Everything derivable from Clips
// (total duration, clip lookups, deletion previews) is computed on read by
// the methods below and never stored.
type State struct {
	Clips          []Clip  `json:"clips"`
	CurrentTime    float64 `json:"current_time"`
	SelectedClipID string  `json:"selected_clip_id,omitempty"`
	ActiveClipID   string  `json:"active_clip_id,omitempty"`
	IsPlaying      bool    `json:"is_playing"`
	ZoomLevel      float64 `json:"zoom_level"`

	// Interaction state for a live marker drag and a pending destructive
	// delete. Neither is ever persisted.
	ActiveTrimClipID    string   `json:"active_trim_clip_id,omitempty"`
	ActiveTrimType      TrimType `json:"active_trim_type,omitempty"`
	PreviewTime         *float64 `json:"preview_time,omitempty"`
	PendingDeleteClipID string   `json:"pending_delete_clip_id,omitempty"`

	// Version increments on every successful mutation.
	Version uint64 `json:"version"`
}

// DeletionPreview describes what ConfirmDelete would remove from a clip.
type DeletionPreview struct {
	StartDuration float64 `json:"start_duration"`
	EndDuration   float64 `json:"end_duration"`
	TotalDeleted  float64 `json:"total_deleted"`
}

func (s State) clone() State {
	out := s
	out.Clips = append([]Clip(nil), s.Clips...)
	if s.PreviewTime != nil {
		pt := *s.PreviewTime
		out.PreviewTime = &pt
	}
	return out
}

func (s State) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Clips {
		if s.Clips[i].ID == id {
			return i
		}
	}
	return -1
}

// ClipByID looks a clip up by id.
func (s State) ClipByID(id string) (Clip, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Clips[i], true
	}
	return Clip{}, false
}

func (s State) SelectedClip() (Clip, bool) { return s.ClipByID(s.SelectedClipID) }

func (s State) ActiveClip() (Clip, bool) { return s.ClipByID(s.ActiveClipID) }

// ClipAtTime returns the clip whose half-open span [StartTime, EndTime)
// contains t. A time exactly on a boundary belongs to the later clip.
func (s State) ClipAtTime(t float64) (Clip, bool) {
	for _, c := range s.Clips {
		if c.Contains(t) {
			return c, true
		}
	}
	return Clip{}, false
}

// NextClip returns the clip after id in sequence order.
func (s State) NextClip(id string) (Clip, bool) {
	i := s.indexOf(id)
	if i < 0 || i+1 >= len(s.Clips) {
		return Clip{}, false
	}
	return s.Clips[i+1], true
}

func (s State) TotalDuration() float64 {
	if len(s.Clips) == 0 {
		return 0
	}
	return s.Clips[len(s.Clips)-1].EndTime
}

// ClipHasTrimMarkers reports whether the clip's markers select less than the
// whole clip, ignoring differences smaller than eps.
func (s State) ClipHasTrimMarkers(id string, eps float64) bool {
	c, ok := s.ClipByID(id)
	return ok && c.HasTrimMarkers(eps)
}

func (s State) DeletionPreview(id string) (DeletionPreview, bool) {
	c, ok := s.ClipByID(id)
	if !ok {
		return DeletionPreview{}, false
	}
	p := DeletionPreview{
		StartDuration: c.TrimStart,
		EndDuration:   c.Duration - c.TrimEnd,
	}
	p.TotalDeleted = p.StartDuration + p.EndDuration
	return p, true
}

// DeletionMessage is the confirmation text shown before ConfirmDelete.
func (s State) DeletionMessage(id string) (string, bool) {
	c, ok := s.ClipByID(id)
	if !ok {
		return "", false
	}
	p, _ := s.DeletionPreview(id)
	return fmt.Sprintf("This will permanently delete %s from %q:\n\n"+
		"• Start: %s (before IN marker)\n"+
		"• End: %s (after OUT marker)\n\n"+
		"The remaining %s will become the new clip.",
		FormatDuration(p.TotalDeleted), c.Name,
		FormatDuration(p.StartDuration),
		FormatDuration(p.EndDuration),
		FormatDuration(c.EffectiveDuration())), true
}

// CurrentClip is the clip the player should show: the active clip while
// playing, otherwise the selection, otherwise the first clip.
func (s State) CurrentClip() (Clip, bool) {
	if s.IsPlaying {
		if c, ok := s.ActiveClip(); ok {
			return c, true
		}
	}
	if c, ok := s.SelectedClip(); ok {
		return c, true
	}
	if len(s.Clips) > 0 {
		return s.Clips[0], true
	}
	return Clip{}, false
}

// EffectivePreviewTime is the source time the player should seek to for a
// trim preview: the live drag position if one is active, otherwise the IN
// marker of a trimmed selection while stopped.
func (s State) EffectivePreviewTime(eps float64) (float64, bool) {
	if s.PreviewTime != nil {
		return *s.PreviewTime, true
	}
	if s.IsPlaying {
		return 0, false
	}
	c, ok := s.SelectedClip()
	if !ok || !c.HasTrimMarkers(eps) {
		return 0, false
	}
	return c.SourceStart + c.TrimStart, true
}

// CheckLayout verifies per-clip invariants, id uniqueness and ordering.
// Gaps are tolerated because a plain removal leaves one; overlaps are not.
func (s State) CheckLayout() error {
	seen := make(map[string]bool, len(s.Clips))
	for i, c := range s.Clips {
		if c.ID == "" {
			return fmt.Errorf("%w: clip at position %d has no id", ErrInvariantViolation, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate clip id %s", ErrInvariantViolation, c.ID)
		}
		seen[c.ID] = true
		if err := c.Validate(); err != nil {
			return err
		}
		if c.StartTime < 0 {
			return fmt.Errorf("%w: clip %s starts before zero", ErrInvariantViolation, c.ID)
		}
		if i > 0 && c.StartTime < s.Clips[i-1].EndTime-floatNoise {
			return fmt.Errorf("%w: clip %s overlaps clip %s", ErrInvariantViolation, c.ID, s.Clips[i-1].ID)
		}
	}
	return nil
}

// IsContiguous reports whether every clip starts where its predecessor ends.
func (s State) IsContiguous() bool {
	for i := 1; i < len(s.Clips); i++ {
		if math.Abs(s.Clips[i].StartTime-s.Clips[i-1].EndTime) > floatNoise {
			return false
		}
	}
	return true
}
