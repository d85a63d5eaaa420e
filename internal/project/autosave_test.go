package project

import (
	"context"
	"testing"
	"time"

	"github.com/clipforge/clipforge-agent/internal/timeline"
)

func TestAutosaver_SaveNow(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, nil)
	ctx := context.Background()

	session := timeline.NewSession(nil)
	a := NewAutosaver(svc, session, time.Hour, nil)

	if a.SaveNow(ctx) {
		t.Fatal("SaveNow() without a tracked project should not save")
	}

	p, err := svc.Save(ctx, "live", session.Snapshot())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	a.Track(p.ID)

	if a.SaveNow(ctx) {
		t.Error("SaveNow() with an unchanged session should not save")
	}

	err = session.Update(func(s *timeline.Store) error {
		_, err := s.ImportClip("a.mp4", "/media/a.mp4", 6)
		return err
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !a.SaveNow(ctx) {
		t.Fatal("SaveNow() after an edit should save")
	}
	if a.SaveNow(ctx) {
		t.Error("second SaveNow() should be a no-op")
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ClipCount != 1 {
		t.Errorf("ClipCount = %d, want 1", got.ClipCount)
	}
}

func TestAutosaver_StartStops(t *testing.T) {
	_, repo := setupTestDB(t)
	a := NewAutosaver(NewService(repo, nil), timeline.NewSession(nil), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !a.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !a.IsRunning() {
		t.Fatal("autosaver did not start")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver did not stop")
	}
	if a.IsRunning() {
		t.Error("IsRunning() = true after stop")
	}
}
