package timeline

import (
	"fmt"
	"math"
	"testing"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("clip-%d", n)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(WithIDGenerator(sequentialIDs()))
}

func mustImport(t *testing.T, s *Store, name string, d float64) Clip {
	t.Helper()
	c, err := s.ImportClip(name, "/media/"+name, d)
	if err != nil {
		t.Fatalf("ImportClip(%q, %v) error = %v", name, d, err)
	}
	return c
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertContiguous(t *testing.T, s *Store) {
	t.Helper()
	st := s.Snapshot()
	if !st.IsContiguous() {
		t.Fatalf("clips not contiguous: %+v", st.Clips)
	}
	if n := len(st.Clips); n > 0 && st.TotalDuration() != st.Clips[n-1].EndTime {
		t.Fatalf("TotalDuration = %v, want %v", st.TotalDuration(), st.Clips[n-1].EndTime)
	}
	if err := st.CheckLayout(); err != nil {
		t.Fatalf("CheckLayout() error = %v", err)
	}
}
