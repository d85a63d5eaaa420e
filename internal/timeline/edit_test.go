package timeline

import (
	"errors"
	"math/rand"
	"testing"
)

func TestConfirmDelete_CommitsMarkersAndRepacks(t *testing.T) {
	s := newTestStore(t)
	a := mustImport(t, s, "a.mp4", 10)
	b := mustImport(t, s, "b.mp4", 4)
	if _, err := s.SetTrimPoints(a.ID, 2, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ProposeDelete(a.ID); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().PendingDeleteClipID; got != a.ID {
		t.Fatalf("PendingDeleteClipID = %q, want %q", got, a.ID)
	}

	got, err := s.ConfirmDelete(a.ID)
	if err != nil {
		t.Fatalf("ConfirmDelete() error = %v", err)
	}
	want := Clip{StartTime: 0, EndTime: 5, SourceStart: 2, SourceEnd: 7, TrimStart: 0, TrimEnd: 5, Duration: 5}
	if got.StartTime != want.StartTime || got.EndTime != want.EndTime || got.SourceStart != want.SourceStart ||
		got.SourceEnd != want.SourceEnd || got.TrimStart != want.TrimStart || got.TrimEnd != want.TrimEnd ||
		got.Duration != want.Duration {
		t.Fatalf("ConfirmDelete() = %+v, want %+v", got, want)
	}

	next, _ := s.Snapshot().ClipByID(b.ID)
	if next.StartTime != 5 || next.EndTime != 9 {
		t.Fatalf("following clip = [%v, %v], want [5, 9]", next.StartTime, next.EndTime)
	}
	if s.Snapshot().PendingDeleteClipID != "" {
		t.Fatal("pending delete not cleared")
	}
	assertContiguous(t, s)
}

func TestConfirmDelete_ComposesUnderRepeatedTrims(t *testing.T) {
	s := newTestStore(t)
	a := mustImport(t, s, "a.mp4", 10)
	_, _ = s.SetTrimPoints(a.ID, 2, 8)
	_, _ = s.ConfirmDelete(a.ID)
	_, _ = s.SetTrimPoints(a.ID, 1, 4)

	got, err := s.ConfirmDelete(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceStart != 3 || got.SourceEnd != 6 || got.Duration != 3 {
		t.Fatalf("second trim = %+v, want source [3, 6]", got)
	}
}

func TestConfirmDelete_FullSpanIsNoOp(t *testing.T) {
	s := newTestStore(t)
	a := mustImport(t, s, "a.mp4", 10)
	before, _ := s.Snapshot().ClipByID(a.ID)

	got, err := s.ConfirmDelete(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != before {
		t.Fatalf("ConfirmDelete() changed full-span clip: %+v -> %+v", before, got)
	}
}

func TestCancelDelete(t *testing.T) {
	s := newTestStore(t)
	a := mustImport(t, s, "a.mp4", 10)
	_, _ = s.SetTrimPoints(a.ID, 2, 7)
	_, _ = s.ProposeDelete(a.ID)

	s.CancelDelete()
	st := s.Snapshot()
	if st.PendingDeleteClipID != "" {
		t.Fatal("pending delete not cleared")
	}
	if c, _ := st.ClipByID(a.ID); c.Duration != 10 || c.TrimStart != 2 {
		t.Fatalf("cancel mutated clip: %+v", c)
	}
}

func TestSplitClipAtPlayhead(t *testing.T) {
	s := newTestStore(t)
	orig := mustImport(t, s, "a.mp4", 10)

	a, b, err := s.SplitClipAtPlayhead(orig.ID, 4)
	if err != nil {
		t.Fatalf("SplitClipAtPlayhead() error = %v", err)
	}
	if a.StartTime != 0 || a.EndTime != 4 || a.SourceStart != 0 || a.SourceEnd != 4 {
		t.Fatalf("A = %+v", a)
	}
	if b.StartTime != 4 || b.EndTime != 10 || b.SourceStart != 4 || b.SourceEnd != 10 {
		t.Fatalf("B = %+v", b)
	}
	if b.TrimStart != 0 || b.TrimEnd != b.Duration {
		t.Fatalf("B markers not reset: %+v", b)
	}
	if a.ID == orig.ID || b.ID == orig.ID || a.ID == b.ID {
		t.Fatalf("split clips need fresh ids: orig=%s a=%s b=%s", orig.ID, a.ID, b.ID)
	}

	st := s.Snapshot()
	if len(st.Clips) != 2 || st.Clips[0].ID != a.ID || st.Clips[1].ID != b.ID {
		t.Fatalf("sequence = %+v", st.Clips)
	}
	if st.SelectedClipID != a.ID {
		t.Fatalf("SelectedClipID = %q, want %q", st.SelectedClipID, a.ID)
	}
	assertContiguous(t, s)
}

func TestSplitClipAtPlayhead_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "lead.mp4", 3)
	orig := mustImport(t, s, "a.mp4", 10)
	_, _ = s.SetTrimPoints(orig.ID, 1, 9)
	_, _ = s.ConfirmDelete(orig.ID)
	orig, _ = s.Snapshot().ClipByID(orig.ID)

	a, b, err := s.SplitClipAtPlayhead(orig.ID, 2.5)
	if err != nil {
		t.Fatal(err)
	}
	if a.SourceStart != orig.SourceStart || b.SourceEnd != orig.SourceEnd {
		t.Fatalf("source range [%v, %v] != original [%v, %v]", a.SourceStart, b.SourceEnd, orig.SourceStart, orig.SourceEnd)
	}
	if !approx(a.Duration+b.Duration, orig.Duration) {
		t.Fatalf("durations %v + %v != %v", a.Duration, b.Duration, orig.Duration)
	}
	if a.SourceEnd != b.SourceStart {
		t.Fatalf("A ends at %v but B starts at %v", a.SourceEnd, b.SourceStart)
	}
}

func TestSplitClipAtPlayhead_CarriesInMarker(t *testing.T) {
	s := newTestStore(t)
	orig := mustImport(t, s, "a.mp4", 10)
	_, _ = s.SetTrimPoints(orig.ID, 1, 8)

	a, _, err := s.SplitClipAtPlayhead(orig.ID, 4)
	if err != nil {
		t.Fatal(err)
	}
	if a.TrimStart != 1 || a.TrimEnd != 4 {
		t.Fatalf("A markers = [%v, %v], want [1, 4]", a.TrimStart, a.TrimEnd)
	}
}

func TestSplitClipAtPlayhead_RejectsEdges(t *testing.T) {
	for _, at := range []float64{0, 0.1, 9.9, 10, -1, 11} {
		s := newTestStore(t)
		orig := mustImport(t, s, "a.mp4", 10)
		before := s.Snapshot()

		if _, _, err := s.SplitClipAtPlayhead(orig.ID, at); !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("split at %v error = %v, want ErrInvariantViolation", at, err)
		}
		if after := s.Snapshot(); after.Version != before.Version || len(after.Clips) != 1 {
			t.Fatalf("split at %v mutated state", at)
		}
	}
}

func TestSplitAtPlayhead_UsesClipUnderPlayhead(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 5)
	mustImport(t, s, "b.mp4", 5)
	_ = s.SetCurrentTime(7)

	a, b, err := s.SplitAtPlayhead()
	if err != nil {
		t.Fatalf("SplitAtPlayhead() error = %v", err)
	}
	if a.StartTime != 5 || a.EndTime != 7 || b.EndTime != 10 {
		t.Fatalf("split = %+v / %+v", a, b)
	}
}

func TestSplitAtPlayhead_IgnoresSelection(t *testing.T) {
	s := newTestStore(t)
	first := mustImport(t, s, "a.mp4", 5)
	second := mustImport(t, s, "b.mp4", 5)
	_ = s.SetCurrentTime(7)
	_ = s.SelectClip(first.ID)

	a, b, err := s.SplitAtPlayhead()
	if err != nil {
		t.Fatalf("SplitAtPlayhead() error = %v", err)
	}
	if a.PlayablePath != second.PlayablePath || a.StartTime != 5 || a.EndTime != 7 || b.EndTime != 10 {
		t.Fatalf("split = %+v / %+v", a, b)
	}
}

func TestSplitAtPlayhead_WhilePlaying(t *testing.T) {
	s := newTestStore(t)
	first := mustImport(t, s, "a.mp4", 5)
	mustImport(t, s, "b.mp4", 5)
	_ = s.SelectClip(first.ID)
	if _, err := s.Play(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Tick(5); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Tick(2); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().CurrentTime; got != 7 {
		t.Fatalf("CurrentTime = %v, want 7", got)
	}

	a, b, err := s.SplitAtPlayhead()
	if err != nil {
		t.Fatalf("SplitAtPlayhead() error = %v", err)
	}
	if a.StartTime != 5 || a.EndTime != 7 || b.StartTime != 7 {
		t.Fatalf("split = %+v / %+v", a, b)
	}
	if got := s.Snapshot().ActiveClipID; got != b.ID {
		t.Fatalf("ActiveClipID = %q, want %q", got, b.ID)
	}
}

func TestSplit_ActiveClipFollowsPlayhead(t *testing.T) {
	s := newTestStore(t)
	orig := mustImport(t, s, "a.mp4", 10)
	_ = s.SetCurrentTime(6)
	if _, err := s.Play(); err != nil {
		t.Fatal(err)
	}

	_, b, err := s.SplitClipAtPlayhead(orig.ID, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().ActiveClipID; got != b.ID {
		t.Fatalf("ActiveClipID = %q, want %q", got, b.ID)
	}
}

func TestTrimDrag(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "lead.mp4", 2)
	c := mustImport(t, s, "a.mp4", 10)

	if err := s.StartTrimDrag(c.ID, TrimOut, 10); err != nil {
		t.Fatal(err)
	}
	got, err := s.UpdateTrimPreview(6)
	if err != nil {
		t.Fatalf("UpdateTrimPreview() error = %v", err)
	}
	if got.TrimEnd != 6 {
		t.Fatalf("TrimEnd = %v, want 6 (eager commit)", got.TrimEnd)
	}
	st := s.Snapshot()
	if st.PreviewTime == nil || *st.PreviewTime != 6 {
		t.Fatalf("PreviewTime = %v, want 6", st.PreviewTime)
	}
	if pt, ok := s.EffectivePreviewTime(); !ok || pt != 6 {
		t.Fatalf("EffectivePreviewTime() = %v, %v", pt, ok)
	}

	s.EndTrimDrag()
	st = s.Snapshot()
	if st.ActiveTrimClipID != "" || st.PreviewTime != nil {
		t.Fatalf("drag state not cleared: %+v", st)
	}
	if committed, _ := st.ClipByID(c.ID); committed.TrimEnd != 6 {
		t.Fatalf("committed TrimEnd = %v, want 6", committed.TrimEnd)
	}
}

func TestUpdateTrimPreview_PinsOtherMarker(t *testing.T) {
	tests := []struct {
		name      string
		which     TrimType
		value     float64
		wantStart float64
		wantEnd   float64
	}{
		{name: "out past in", which: TrimOut, value: 2, wantStart: 5, wantEnd: 5.1},
		{name: "out past duration", which: TrimOut, value: 12, wantStart: 5, wantEnd: 10},
		{name: "in past out", which: TrimIn, value: 9, wantStart: 7.9, wantEnd: 8},
		{name: "in below zero", which: TrimIn, value: -1, wantStart: 0, wantEnd: 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			c := mustImport(t, s, "a.mp4", 10)
			_, _ = s.SetTrimPoints(c.ID, 5, 8)
			if err := s.StartTrimDrag(c.ID, tc.which, 5); err != nil {
				t.Fatal(err)
			}

			got, err := s.UpdateTrimPreview(tc.value)
			if err != nil {
				t.Fatalf("UpdateTrimPreview() error = %v", err)
			}
			if !approx(got.TrimStart, tc.wantStart) || !approx(got.TrimEnd, tc.wantEnd) {
				t.Fatalf("markers = [%v, %v], want [%v, %v]", got.TrimStart, got.TrimEnd, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestUpdateTrimPreview_WithoutDrag(t *testing.T) {
	s := newTestStore(t)
	mustImport(t, s, "a.mp4", 10)
	if _, err := s.UpdateTrimPreview(3); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
}

func TestEffectivePreviewTime_TrimmedSelection(t *testing.T) {
	s := newTestStore(t)
	c := mustImport(t, s, "a.mp4", 10)
	_, _ = s.SetTrimPoints(c.ID, 3, 8)
	_ = s.SelectClip(c.ID)

	if pt, ok := s.EffectivePreviewTime(); !ok || pt != 3 {
		t.Fatalf("EffectivePreviewTime() = %v, %v; want 3", pt, ok)
	}
}

func TestEditSequencesStayContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := newTestStore(t)
	for i := 0; i < 200; i++ {
		st := s.Snapshot()
		switch op := rng.Intn(3); {
		case op == 0 || len(st.Clips) == 0:
			mustImport(t, s, "c.mp4", 1+rng.Float64()*9)
		case op == 1:
			c := st.Clips[rng.Intn(len(st.Clips))]
			_, _, _ = s.SplitClipAtPlayhead(c.ID, rng.Float64()*c.Duration)
		default:
			c := st.Clips[rng.Intn(len(st.Clips))]
			lo := rng.Float64() * c.Duration
			_, _ = s.SetTrimPoints(c.ID, lo, lo+rng.Float64()*c.Duration)
			_, _ = s.ConfirmDelete(c.ID)
		}
		assertContiguous(t, s)
	}
}
