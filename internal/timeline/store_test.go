package timeline

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestImportAndAddClip_Placement(t *testing.T) {
	s := newTestStore(t)

	a := mustImport(t, s, "a.mp4", 10)
	if a.StartTime != 0 || a.EndTime != 10 || a.TrimStart != 0 || a.TrimEnd != 10 {
		t.Fatalf("first clip = %+v", a)
	}
	b := mustImport(t, s, "b.mp4", 4)
	if b.StartTime != 10 || b.EndTime != 14 {
		t.Fatalf("second clip = %+v", b)
	}
	if got := s.TotalDuration(); got != 14 {
		t.Fatalf("TotalDuration() = %v, want 14", got)
	}
	assertContiguous(t, s)
}

func TestImportClip_UnsupportedFormat(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	if _, err := s.ImportClip("notes.txt", "/tmp/notes.txt", 3); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("ImportClip() error = %v, want ErrUnsupportedFormat", err)
	}
	if after := s.Snapshot(); after.Version != before.Version || len(after.Clips) != 0 {
		t.Fatalf("state mutated on rejected import: %+v", after)
	}
}

func TestImportClip_RecordingWithSyntheticName(t *testing.T) {
	s := newTestStore(t)
	c, err := s.ImportClip("Screen Recording 1", "/tmp/recording-1.webm", 7.5)
	if err != nil {
		t.Fatalf("ImportClip() error = %v", err)
	}
	if c.Duration != 7.5 {
		t.Fatalf("Duration = %v, want 7.5", c.Duration)
	}
}

func TestAddClip_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	c := mustImport(t, s, "a.mp4", 2)
	if _, err := s.AddClip(c); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("AddClip(duplicate) error = %v, want ErrInvariantViolation", err)
	}
}

func TestRemoveClip_LeavesGap(t *testing.T) {
	s := newTestStore(t)
	a := mustImport(t, s, "a.mp4", 5)
	b := mustImport(t, s, "b.mp4", 5)
	c := mustImport(t, s, "c.mp4", 5)
	if err := s.SelectClip(b.ID); err != nil {
		t.Fatalf("SelectClip() error = %v", err)
	}

	if err := s.RemoveClip(b.ID); err != nil {
		t.Fatalf("RemoveClip() error = %v", err)
	}

	st := s.Snapshot()
	if len(st.Clips) != 2 || st.Clips[0].ID != a.ID || st.Clips[1].ID != c.ID {
		t.Fatalf("unexpected clips: %+v", st.Clips)
	}
	if st.Clips[1].StartTime != 10 {
		t.Fatalf("remaining clip moved: start = %v, want 10", st.Clips[1].StartTime)
	}
	if st.SelectedClipID != "" {
		t.Fatalf("selection not cleared: %q", st.SelectedClipID)
	}
	if _, ok := s.ClipAtTime(7); ok {
		t.Fatal("expected gap at t=7")
	}

	s.Repack()
	assertContiguous(t, s)
	if got := s.TotalDuration(); got != 10 {
		t.Fatalf("TotalDuration() after Repack = %v, want 10", got)
	}
}

func TestRemoveClip_ActiveWhilePlayingPauses(t *testing.T) {
	s := newTestStore(t)
	a := mustImport(t, s, "a.mp4", 5)
	mustImport(t, s, "b.mp4", 5)
	if _, err := s.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if err := s.RemoveClip(a.ID); err != nil {
		t.Fatalf("RemoveClip() error = %v", err)
	}
	st := s.Snapshot()
	if st.IsPlaying || st.ActiveClipID != "" {
		t.Fatalf("expected paused with no active clip, got playing=%v active=%q", st.IsPlaying, st.ActiveClipID)
	}
}

func TestInvalidReferenceIsNoOp(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 5)
	before := s.Snapshot()

	ops := map[string]func() error{
		"remove":  func() error { return s.RemoveClip("missing") },
		"select":  func() error { return s.SelectClip("missing") },
		"active":  func() error { return s.SetActiveClip("missing") },
		"update":  func() error { return s.UpdateClip("missing", ClipPatch{}) },
		"trim":    func() error { _, err := s.SetTrimPoints("missing", 1, 2); return err },
		"confirm": func() error { _, err := s.ConfirmDelete("missing"); return err },
		"propose": func() error { _, err := s.ProposeDelete("missing"); return err },
		"split":   func() error { _, _, err := s.SplitClipAtPlayhead("missing", 2); return err },
		"drag":    func() error { return s.StartTrimDrag("missing", TrimIn, 0) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrInvalidReference) {
				t.Fatalf("error = %v, want ErrInvalidReference", err)
			}
			if after := s.Snapshot(); after.Version != before.Version {
				t.Fatalf("version changed from %d to %d", before.Version, after.Version)
			}
		})
	}
}

func TestUpdateClip_ShallowMerge(t *testing.T) {
	s := newTestStore(t)
	c := mustImport(t, s, "a.mp4", 5)
	name := "renamed"
	if err := s.UpdateClip(c.ID, ClipPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateClip() error = %v", err)
	}
	got, _ := s.Snapshot().ClipByID(c.ID)
	if got.Name != "renamed" || got.Duration != 5 {
		t.Fatalf("unexpected clip after merge: %+v", got)
	}
}

func TestSetTrimPoints_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		wantStart  float64
		wantEnd    float64
	}{
		{name: "in range", start: 2, end: 7, wantStart: 2, wantEnd: 7},
		{name: "negative start", start: -3, end: 7, wantStart: 0, wantEnd: 7},
		{name: "end past duration", start: 2, end: 42, wantStart: 2, wantEnd: 10},
		{name: "crossed", start: 8, end: 3, wantStart: 8, wantEnd: 8.1},
		{name: "collapsed", start: 5, end: 5, wantStart: 5, wantEnd: 5.1},
		{name: "start past duration", start: 12, end: 12, wantStart: 9.9, wantEnd: 10},
		{name: "end below epsilon", start: 0, end: -1, wantStart: 0, wantEnd: 0.1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			c := mustImport(t, s, "a.mp4", 10)

			got, err := s.SetTrimPoints(c.ID, tc.start, tc.end)
			if err != nil {
				t.Fatalf("SetTrimPoints() error = %v", err)
			}
			if !approx(got.TrimStart, tc.wantStart) || !approx(got.TrimEnd, tc.wantEnd) {
				t.Fatalf("markers = [%v, %v], want [%v, %v]", got.TrimStart, got.TrimEnd, tc.wantStart, tc.wantEnd)
			}
			if !(got.TrimStart < got.TrimEnd) || got.TrimStart < 0 || got.TrimEnd > got.Duration {
				t.Fatalf("marker bounds violated: %+v", got)
			}
			if got.StartTime != 0 || got.EndTime != 10 {
				t.Fatalf("placement changed: %+v", got)
			}
		})
	}
}

func TestSetTrimPoints_RejectsNaN(t *testing.T) {
	s := newTestStore(t)
	c := mustImport(t, s, "a.mp4", 10)
	if _, err := s.SetTrimPoints(c.ID, math.NaN(), 5); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("error = %v, want ErrInvariantViolation", err)
	}
}

func TestClipHasTrimMarkersAndPreview(t *testing.T) {
	s := newTestStore(t)
	c := mustImport(t, s, "a.mp4", 10)
	if s.ClipHasTrimMarkers(c.ID) {
		t.Fatal("fresh clip reported trim markers")
	}
	if _, err := s.SetTrimPoints(c.ID, 0.05, 9.96); err != nil {
		t.Fatal(err)
	}
	if s.ClipHasTrimMarkers(c.ID) {
		t.Fatal("sub-epsilon markers reported as trimmed")
	}
	if _, err := s.SetTrimPoints(c.ID, 2, 7); err != nil {
		t.Fatal(err)
	}
	if !s.ClipHasTrimMarkers(c.ID) {
		t.Fatal("expected trim markers")
	}

	p, ok := s.DeletionPreview(c.ID)
	if !ok {
		t.Fatal("DeletionPreview() missing")
	}
	if p.StartDuration != 2 || p.EndDuration != 3 || p.TotalDeleted != 5 {
		t.Fatalf("DeletionPreview() = %+v", p)
	}
	msg, _ := s.Snapshot().DeletionMessage(c.ID)
	if want := "0:05.00"; !strings.Contains(msg, want) || !strings.Contains(msg, "a.mp4") {
		t.Fatalf("DeletionMessage() = %q, want it to mention %s", msg, want)
	}
}

func TestClipAtTime_HalfOpenBoundary(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 5)
	b := mustImport(t, s, "b.mp4", 5)

	got, ok := s.ClipAtTime(5)
	if !ok || got.ID != b.ID {
		t.Fatalf("ClipAtTime(5) = %+v, %v; want second clip", got, ok)
	}
	if _, ok := s.ClipAtTime(10); ok {
		t.Fatal("ClipAtTime(total) should find nothing")
	}
}

func TestSetCurrentTime_ClampsAndAutoSelects(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 5)
	b := mustImport(t, s, "b.mp4", 5)

	if err := s.SetCurrentTime(7); err != nil {
		t.Fatal(err)
	}
	st := s.Snapshot()
	if st.SelectedClipID != b.ID {
		t.Fatalf("SelectedClipID = %q, want %q", st.SelectedClipID, b.ID)
	}
	if st.ActiveClipID != "" {
		t.Fatalf("scrub must not activate a clip, got %q", st.ActiveClipID)
	}

	if err := s.SetCurrentTime(99); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().CurrentTime; got != 10 {
		t.Fatalf("CurrentTime = %v, want clamp to 10", got)
	}
}

func TestCurrentClip(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.CurrentClip(); ok {
		t.Fatal("empty timeline has no current clip")
	}
	a := mustImport(t, s, "a.mp4", 5)
	b := mustImport(t, s, "b.mp4", 5)

	if c, _ := s.CurrentClip(); c.ID != a.ID {
		t.Fatalf("CurrentClip() = %q, want first clip", c.ID)
	}
	_ = s.SelectClip(b.ID)
	if c, _ := s.CurrentClip(); c.ID != b.ID {
		t.Fatalf("CurrentClip() = %q, want selection", c.ID)
	}
}

func TestClearTimeline_KeepsZoom(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 5)
	s.ZoomIn()
	zoom := s.ZoomLevel()
	_, _ = s.Play()

	s.ClearTimeline()
	st := s.Snapshot()
	if len(st.Clips) != 0 || st.IsPlaying || st.CurrentTime != 0 || st.ActiveClipID != "" {
		t.Fatalf("state not reset: %+v", st)
	}
	if st.ZoomLevel != zoom {
		t.Fatalf("ZoomLevel = %v, want %v", st.ZoomLevel, zoom)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 5)
	snap := s.Snapshot()
	snap.Clips[0].Name = "mutated"
	if got, _ := s.Snapshot().ClipByID(snap.Clips[0].ID); got.Name == "mutated" {
		t.Fatal("snapshot shares clip storage with store")
	}
}

func TestRestore(t *testing.T) {
	src := newTestStore(t)
	a := mustImport(t, src, "a.mp4", 5)
	mustImport(t, src, "b.mp4", 5)
	_ = src.SelectClip(a.ID)
	_ = src.SetCurrentTime(3)
	snap := src.Snapshot()

	dst := NewStore()
	if err := dst.Restore(snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	got := dst.Snapshot()
	if len(got.Clips) != 2 || got.SelectedClipID != a.ID || got.CurrentTime != 3 {
		t.Fatalf("restored state = %+v", got)
	}

	bad := snap
	bad.Clips = append([]Clip(nil), snap.Clips...)
	bad.Clips[1].StartTime = 2
	bad.Clips[1].EndTime = 7
	if err := dst.Restore(bad); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Restore(overlap) error = %v, want ErrInvariantViolation", err)
	}
}

func TestVersionIncrements(t *testing.T) {
	s := newTestStore(t)
	v0 := s.Snapshot().Version
	mustImport(t, s, "a.mp4", 5)
	if v1 := s.Snapshot().Version; v1 <= v0 {
		t.Fatalf("Version did not increase: %d -> %d", v0, v1)
	}
}
