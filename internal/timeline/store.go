package timeline

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Store owns the clip sequence and all playback/edit state for one editing
// session. It is not safe for concurrent use; wrap it in a Session when more
// than one goroutine issues commands.
type Store struct {
	state  State
	th     Thresholds
	newID  func() string
	logger *slog.Logger
	pinch  pinchGesture
}

type Option func(*Store)

func WithThresholds(t Thresholds) Option {
	return func(s *Store) { s.th = t.withDefaults() }
}

// WithIDGenerator replaces the uuid-based clip id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		state:  State{ZoomLevel: DefaultZoomLevel},
		th:     DefaultThresholds(),
		newID:  uuid.NewString,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State { return s.state.clone() }

func (s *Store) Thresholds() Thresholds { return s.th }

func (s *Store) Clips() []Clip { return append([]Clip(nil), s.state.Clips...) }

func (s *Store) commit() { s.state.Version++ }

func (s *Store) reject(op, clipID string, err error) error {
	s.logger.Warn("timeline operation ignored", "op", op, "clip_id", clipID, "error", err)
	return err
}

func (s *Store) lookup(op, id string) (int, error) {
	i := s.state.indexOf(id)
	if i < 0 {
		return -1, s.reject(op, id, fmt.Errorf("%w: %q", ErrInvalidReference, id))
	}
	return i, nil
}

// AddClip appends a clip after the current last clip and returns it with
// its assigned placement. A clip without an id gets a fresh one.
func (s *Store) AddClip(c Clip) (Clip, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if s.state.indexOf(c.ID) >= 0 {
		return Clip{}, s.reject("add_clip", c.ID, fmt.Errorf("%w: duplicate clip id", ErrInvariantViolation))
	}
	c.StartTime = s.state.TotalDuration()
	c.EndTime = c.StartTime + c.Duration
	if err := c.Validate(); err != nil {
		return Clip{}, s.reject("add_clip", c.ID, err)
	}

	s.state.Clips = append(s.state.Clips, c)
	s.commit()
	s.logger.Debug("clip added", "clip_id", c.ID, "start", c.StartTime, "end", c.EndTime)
	return c, nil
}

// ImportClip creates a full-range clip from a probed media file and appends
// it. Either the display name or the playable path must carry a supported
// video extension.
func (s *Store) ImportClip(name, playablePath string, probedDuration float64) (Clip, error) {
	if !IsVideoFile(name) && !IsVideoFile(playablePath) {
		return Clip{}, s.reject("import_clip", "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name))
	}
	c, err := NewFromImport(s.newID(), name, playablePath, probedDuration)
	if err != nil {
		return Clip{}, s.reject("import_clip", "", err)
	}
	return s.AddClip(c)
}

// RemoveClip deletes a clip. Later clips keep their placement, leaving a
// gap; call Repack to close it.
func (s *Store) RemoveClip(id string) error {
	i, err := s.lookup("remove_clip", id)
	if err != nil {
		return err
	}

	if s.state.ActiveClipID == id {
		if s.state.IsPlaying {
			s.pause()
		}
		s.state.ActiveClipID = ""
	}
	if s.state.SelectedClipID == id {
		s.state.SelectedClipID = ""
	}
	s.clearInteractionFor(id)

	s.state.Clips = append(s.state.Clips[:i:i], s.state.Clips[i+1:]...)
	s.clampCurrentTime()
	s.commit()
	s.logger.Debug("clip removed", "clip_id", id)
	return nil
}

// ClipPatch is a shallow partial update for UpdateClip. Nil fields are left
// unchanged.
type ClipPatch struct {
	Name         *string
	PlayablePath *string
	SourceStart  *float64
	SourceEnd    *float64
	Duration     *float64
	StartTime    *float64
	EndTime      *float64
	TrimStart    *float64
	TrimEnd      *float64
}

// UpdateClip applies a shallow merge. It does not enforce invariants;
// callers must validate first.
func (s *Store) UpdateClip(id string, p ClipPatch) error {
	i, err := s.lookup("update_clip", id)
	if err != nil {
		return err
	}
	c := &s.state.Clips[i]
	setString(&c.Name, p.Name)
	setString(&c.PlayablePath, p.PlayablePath)
	setFloat(&c.SourceStart, p.SourceStart)
	setFloat(&c.SourceEnd, p.SourceEnd)
	setFloat(&c.Duration, p.Duration)
	setFloat(&c.StartTime, p.StartTime)
	setFloat(&c.EndTime, p.EndTime)
	setFloat(&c.TrimStart, p.TrimStart)
	setFloat(&c.TrimEnd, p.TrimEnd)
	s.commit()
	return nil
}

// SetTrimPoints moves a clip's markers, clamping so that
// 0 <= trimStart < trimEnd <= duration with at least MarkerEpsilon between
// them. The in marker is clamped first and the out marker follows it, so a
// crossed pair keeps trimStart. Placement and duration are not touched.
func (s *Store) SetTrimPoints(id string, trimStart, trimEnd float64) (Clip, error) {
	i, err := s.lookup("set_trim_points", id)
	if err != nil {
		return Clip{}, err
	}
	if !isFinite(trimStart) || !isFinite(trimEnd) {
		return Clip{}, s.reject("set_trim_points", id, fmt.Errorf("%w: non-finite marker", ErrInvariantViolation))
	}

	c := &s.state.Clips[i]
	eps := math.Min(s.th.MarkerEpsilon, c.Duration)
	start := clamp(trimStart, 0, c.Duration-eps)
	end := math.Min(math.Max(trimEnd, start+eps), c.Duration)
	if end <= start {
		start, end = 0, c.Duration
	}
	c.TrimStart, c.TrimEnd = start, end
	s.commit()
	return *c, nil
}

// ClearTimeline removes every clip and resets playback and interaction
// state. The zoom level is a view preference and survives.
func (s *Store) ClearTimeline() {
	zoom := s.state.ZoomLevel
	version := s.state.Version
	s.state = State{ZoomLevel: zoom, Version: version}
	s.pinch = pinchGesture{}
	s.commit()
}

// SelectClip marks a clip for editing. An empty id clears the selection.
func (s *Store) SelectClip(id string) error {
	if id != "" {
		if _, err := s.lookup("select_clip", id); err != nil {
			return err
		}
	}
	s.state.SelectedClipID = id
	s.commit()
	return nil
}

// SetActiveClip sets the clip driving playback without moving the playhead.
func (s *Store) SetActiveClip(id string) error {
	if id != "" {
		if _, err := s.lookup("set_active_clip", id); err != nil {
			return err
		}
	}
	s.state.ActiveClipID = id
	s.commit()
	return nil
}

// SetCurrentTime moves the playhead, clamped to [0, totalDuration]. While
// stopped the clip under the new position becomes the selection.
func (s *Store) SetCurrentTime(t float64) error {
	if !isFinite(t) {
		return s.reject("set_current_time", "", fmt.Errorf("%w: non-finite time", ErrInvariantViolation))
	}
	s.state.CurrentTime = clamp(t, 0, s.state.TotalDuration())
	if !s.state.IsPlaying {
		if c, ok := s.state.ClipAtTime(s.state.CurrentTime); ok {
			s.state.SelectedClipID = c.ID
		}
	}
	s.commit()
	return nil
}

// Restore replaces the store's contents with a previously saved snapshot.
// Interaction and transport state are reset; the snapshot must satisfy
// every clip invariant.
func (s *Store) Restore(st State) error {
	st = st.clone()
	if err := st.CheckLayout(); err != nil {
		return s.reject("restore", "", err)
	}
	restored := State{
		Clips:     st.Clips,
		ZoomLevel: clamp(st.ZoomLevel, MinZoomLevel, MaxZoomLevel),
		Version:   s.state.Version,
	}
	if st.ZoomLevel == 0 {
		restored.ZoomLevel = DefaultZoomLevel
	}
	if restored.indexOf(st.SelectedClipID) >= 0 {
		restored.SelectedClipID = st.SelectedClipID
	}
	restored.CurrentTime = clamp(st.CurrentTime, 0, restored.TotalDuration())
	s.state = restored
	s.pinch = pinchGesture{}
	s.commit()
	return nil
}

func (s *Store) clampCurrentTime() {
	s.state.CurrentTime = clamp(s.state.CurrentTime, 0, s.state.TotalDuration())
}

func (s *Store) clearInteractionFor(id string) {
	if s.state.ActiveTrimClipID == id {
		s.state.ActiveTrimClipID = ""
		s.state.ActiveTrimType = ""
		s.state.PreviewTime = nil
	}
	if s.state.PendingDeleteClipID == id {
		s.state.PendingDeleteClipID = ""
	}
}

// Selectors over the live state.

func (s *Store) SelectedClip() (Clip, bool) { return s.state.SelectedClip() }

func (s *Store) ActiveClip() (Clip, bool) { return s.state.ActiveClip() }

func (s *Store) ClipAtTime(t float64) (Clip, bool) { return s.state.ClipAtTime(t) }

func (s *Store) NextClip(id string) (Clip, bool) { return s.state.NextClip(id) }

func (s *Store) TotalDuration() float64 { return s.state.TotalDuration() }

func (s *Store) ClipHasTrimMarkers(id string) bool {
	return s.state.ClipHasTrimMarkers(id, s.th.MarkerEpsilon)
}

func (s *Store) DeletionPreview(id string) (DeletionPreview, bool) {
	return s.state.DeletionPreview(id)
}

func (s *Store) CurrentClip() (Clip, bool) { return s.state.CurrentClip() }

func (s *Store) EffectivePreviewTime() (float64, bool) {
	return s.state.EffectivePreviewTime(s.th.MarkerEpsilon)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
