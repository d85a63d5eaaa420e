package timeline

import (
	"fmt"
	"math"
)

// StartTrimDrag begins a live marker drag on a clip. The initial value is
// a clip-local marker position.
func (s *Store) StartTrimDrag(id string, which TrimType, initialValue float64) error {
	i, err := s.lookup("start_trim_drag", id)
	if err != nil {
		return err
	}
	if which != TrimIn && which != TrimOut {
		return s.reject("start_trim_drag", id, fmt.Errorf("%w: trim type %q", ErrInvariantViolation, which))
	}
	c := s.state.Clips[i]
	preview := c.SourceStart + clamp(initialValue, 0, c.Duration)
	s.state.ActiveTrimClipID = id
	s.state.ActiveTrimType = which
	s.state.PreviewTime = &preview
	s.commit()
	return nil
}

// UpdateTrimPreview moves the dragged marker. The marker is committed
// immediately through SetTrimPoints; PreviewTime follows the committed value
// in source time so the player can seek to it.
func (s *Store) UpdateTrimPreview(value float64) (Clip, error) {
	id := s.state.ActiveTrimClipID
	if id == "" {
		return Clip{}, s.reject("update_trim_preview", "", fmt.Errorf("%w: no trim drag in progress", ErrInvalidReference))
	}
	i, err := s.lookup("update_trim_preview", id)
	if err != nil {
		return Clip{}, err
	}

	// The marker not being dragged stays where it is.
	c := s.state.Clips[i]
	eps := math.Min(s.th.MarkerEpsilon, c.Duration)
	start, end := c.TrimStart, c.TrimEnd
	if s.state.ActiveTrimType == TrimIn {
		start = clamp(value, 0, c.TrimEnd-eps)
	} else {
		end = math.Min(math.Max(value, c.TrimStart+eps), c.Duration)
	}
	updated, err := s.SetTrimPoints(id, start, end)
	if err != nil {
		return Clip{}, err
	}

	marker := updated.TrimEnd
	if s.state.ActiveTrimType == TrimIn {
		marker = updated.TrimStart
	}
	preview := updated.SourceStart + marker
	s.state.PreviewTime = &preview
	s.commit()
	return updated, nil
}

// EndTrimDrag clears the transient drag state. Committed markers stay.
func (s *Store) EndTrimDrag() {
	if s.state.ActiveTrimClipID == "" && s.state.PreviewTime == nil {
		return
	}
	s.state.ActiveTrimClipID = ""
	s.state.ActiveTrimType = ""
	s.state.PreviewTime = nil
	s.commit()
}

// ProposeDelete records a pending delete-outside-markers for the clip so it
// can be confirmed by the user. Nothing is removed yet.
func (s *Store) ProposeDelete(id string) (DeletionPreview, error) {
	if _, err := s.lookup("propose_delete", id); err != nil {
		return DeletionPreview{}, err
	}
	s.state.PendingDeleteClipID = id
	s.commit()
	p, _ := s.state.DeletionPreview(id)
	return p, nil
}

func (s *Store) CancelDelete() {
	if s.state.PendingDeleteClipID == "" {
		return
	}
	s.state.PendingDeleteClipID = ""
	s.commit()
}

// ConfirmDelete commits the clip's markers into its source window, discarding
// the media outside them. The clip keeps its start time and every later clip
// shifts left by the removed amount.
func (s *Store) ConfirmDelete(id string) (Clip, error) {
	i, err := s.lookup("confirm_delete", id)
	if err != nil {
		return Clip{}, err
	}
	if s.state.PendingDeleteClipID == id {
		s.state.PendingDeleteClipID = ""
	}

	orig := s.state.Clips[i]
	if orig.TrimStart == 0 && orig.TrimEnd == orig.Duration {
		s.commit()
		return orig, nil
	}

	newDuration := orig.TrimEnd - orig.TrimStart
	if !(newDuration > 0) {
		return Clip{}, s.reject("confirm_delete", id, fmt.Errorf("%w: empty marker range", ErrInvariantViolation))
	}

	c := orig
	c.SourceStart = orig.SourceStart + orig.TrimStart
	c.SourceEnd = orig.SourceStart + orig.TrimEnd
	c.Duration = newDuration
	c.EndTime = c.StartTime + newDuration
	c.TrimStart = 0
	c.TrimEnd = newDuration
	s.state.Clips[i] = c

	removed := orig.Duration - newDuration
	for j := i + 1; j < len(s.state.Clips); j++ {
		s.state.Clips[j].StartTime -= removed
		s.state.Clips[j].EndTime -= removed
	}
	if s.state.ActiveTrimClipID == id {
		s.state.ActiveTrimClipID = ""
		s.state.ActiveTrimType = ""
		s.state.PreviewTime = nil
	}
	s.clampCurrentTime()
	s.commit()
	s.logger.Debug("deleted outside markers", "clip_id", id, "removed", removed)
	return c, nil
}

// SplitClipAtPlayhead splits a clip at a clip-local offset into two clips
// occupying the same span. Splits within MarkerEpsilon of either edge are
// rejected.
func (s *Store) SplitClipAtPlayhead(id string, splitTime float64) (Clip, Clip, error) {
	i, err := s.lookup("split_clip", id)
	if err != nil {
		return Clip{}, Clip{}, err
	}
	orig := s.state.Clips[i]
	eps := s.th.MarkerEpsilon
	if !isFinite(splitTime) || splitTime <= eps || splitTime >= orig.Duration-eps {
		return Clip{}, Clip{}, s.reject("split_clip", id,
			fmt.Errorf("%w: split at %.3f outside (%.3f, %.3f)", ErrInvariantViolation, splitTime, eps, orig.Duration-eps))
	}

	a := orig
	a.ID = s.newID()
	a.Duration = splitTime
	a.EndTime = a.StartTime + splitTime
	a.SourceEnd = orig.SourceStart + splitTime
	a.TrimEnd = math.Min(orig.TrimEnd, splitTime)
	a.TrimStart = orig.TrimStart
	if a.TrimStart > a.TrimEnd-eps {
		a.TrimStart = math.Max(0, a.TrimEnd-eps)
	}
	if a.TrimEnd-a.TrimStart < eps {
		a.TrimStart, a.TrimEnd = 0, splitTime
	}

	b := orig
	b.ID = s.newID()
	b.Duration = orig.Duration - splitTime
	b.StartTime = a.EndTime
	b.EndTime = orig.EndTime
	b.SourceStart = orig.SourceStart + splitTime
	b.SourceEnd = orig.SourceEnd
	b.TrimStart = 0
	b.TrimEnd = b.Duration

	clips := make([]Clip, 0, len(s.state.Clips)+1)
	clips = append(clips, s.state.Clips[:i]...)
	clips = append(clips, a, b)
	clips = append(clips, s.state.Clips[i+1:]...)
	s.state.Clips = clips

	s.state.SelectedClipID = a.ID
	if s.state.ActiveClipID == id {
		s.state.ActiveClipID = a.ID
		if b.Contains(s.state.CurrentTime) {
			s.state.ActiveClipID = b.ID
		}
	}
	s.clearInteractionFor(id)
	s.commit()
	s.logger.Debug("clip split", "clip_id", id, "left", a.ID, "right", b.ID, "at", splitTime)
	return a, b, nil
}

// SplitAtPlayhead splits the clip under the playhead at the current
// playhead position. The selection does not take part.
func (s *Store) SplitAtPlayhead() (Clip, Clip, error) {
	c, ok := s.state.ClipAtTime(s.state.CurrentTime)
	if !ok {
		return Clip{}, Clip{}, s.reject("split_at_playhead", "", fmt.Errorf("%w: no clip to split", ErrInvalidReference))
	}
	return s.SplitClipAtPlayhead(c.ID, s.state.CurrentTime-c.StartTime)
}

// Repack closes every gap, laying clips end to end from zero in sequence
// order.
func (s *Store) Repack() {
	var t float64
	for i := range s.state.Clips {
		c := &s.state.Clips[i]
		c.StartTime = t
		c.EndTime = t + c.Duration
		t = c.EndTime
	}
	s.clampCurrentTime()
	s.commit()
}
