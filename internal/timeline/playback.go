package timeline

import "fmt"

// Cue tells the media player which clip to show and where to seek in its
// source media.
type Cue struct {
	ClipID       string  `json:"clip_id"`
	PlayablePath string  `json:"playable_path"`
	SeekSource   float64 `json:"seek_source"`
}

// TickResult reports the outcome of one player position update. Cue is set
// when playback switched to another clip; Stopped is set when playback ran
// off the end of the timeline.
type TickResult struct {
	CurrentTime float64 `json:"current_time"`
	Cue         *Cue    `json:"cue,omitempty"`
	Stopped     bool    `json:"stopped"`
	Ignored     bool    `json:"ignored"`
}

func cueFor(c Clip, globalTime float64) Cue {
	return Cue{
		ClipID:       c.ID,
		PlayablePath: c.PlayablePath,
		SeekSource:   c.SourceTimeAt(globalTime),
	}
}

// Play starts playback from the playhead. A playhead at or beyond the end,
// or sitting in a gap, restarts from the first clip.
func (s *Store) Play() (Cue, error) {
	if len(s.state.Clips) == 0 {
		return Cue{}, s.reject("play", "", ErrEmptyTimeline)
	}

	var target Clip
	total := s.state.TotalDuration()
	if s.state.CurrentTime >= total {
		target = s.state.Clips[0]
		s.state.CurrentTime = 0
	} else if c, ok := s.state.ClipAtTime(s.state.CurrentTime); ok {
		target = c
	} else {
		target = s.state.Clips[0]
		s.state.CurrentTime = target.StartTime
	}

	s.state.IsPlaying = true
	s.state.ActiveClipID = target.ID
	s.commit()
	s.logger.Debug("playback started", "clip_id", target.ID, "time", s.state.CurrentTime)
	return cueFor(target, s.state.CurrentTime), nil
}

// Pause stops playback and clears the active clip.
func (s *Store) Pause() {
	s.pause()
	s.commit()
}

func (s *Store) pause() {
	s.state.IsPlaying = false
	s.state.ActiveClipID = ""
}

// TogglePlay pauses when playing and plays otherwise. The returned cue is
// nil after a pause.
func (s *Store) TogglePlay() (*Cue, error) {
	if s.state.IsPlaying {
		s.Pause()
		return nil, nil
	}
	cue, err := s.Play()
	if err != nil {
		return nil, err
	}
	return &cue, nil
}

// Tick handles a source-relative position reported by the player for the
// active clip. Reaching the end guard advances to the next clip or stops at
// the end of the timeline.
func (s *Store) Tick(sourcePosition float64) (TickResult, error) {
	active, ok := s.state.ActiveClip()
	if !s.state.IsPlaying || !ok {
		return TickResult{CurrentTime: s.state.CurrentTime, Ignored: true}, nil
	}
	if !isFinite(sourcePosition) {
		return TickResult{}, s.reject("tick", active.ID, fmt.Errorf("%w: non-finite position", ErrInvariantViolation))
	}

	globalTime := clamp(active.StartTime+(sourcePosition-active.SourceStart), active.StartTime, s.state.TotalDuration())
	if sourcePosition < active.SourceEnd-s.th.EndOfClipGuard {
		s.state.CurrentTime = globalTime
		s.commit()
		return TickResult{CurrentTime: globalTime}, nil
	}

	if next, ok := s.state.NextClip(active.ID); ok {
		s.state.ActiveClipID = next.ID
		s.state.CurrentTime = next.StartTime
		s.commit()
		cue := cueFor(next, next.StartTime)
		s.logger.Debug("playback advanced", "from", active.ID, "to", next.ID)
		return TickResult{CurrentTime: next.StartTime, Cue: &cue}, nil
	}

	s.state.CurrentTime = clamp(globalTime, 0, s.state.TotalDuration())
	s.pause()
	s.commit()
	s.logger.Debug("playback reached end", "clip_id", active.ID)
	return TickResult{CurrentTime: s.state.CurrentTime, Stopped: true}, nil
}
