package project

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

const DefaultAutosaveInterval = 30 * time.Second

// Autosaver periodically writes the live session back to its project
// whenever the timeline version has moved since the last save.
type Autosaver struct {
	service   *Service
	session   *timeline.Session
	logger    *slog.Logger
	interval  time.Duration
	projectID atomic.Value
	saved     atomic.Uint64
	running   atomic.Bool
	paused    atomic.Bool
}

func NewAutosaver(service *Service, session *timeline.Session, interval time.Duration, logger *slog.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	a := &Autosaver{
		service:  service,
		session:  session,
		logger:   logging.WithComponent(logging.OrDiscard(logger), "autosave"),
		interval: interval,
	}
	a.projectID.Store("")
	return a
}

// Track points the autosaver at id and treats the current session version
// as already saved.
func (a *Autosaver) Track(id string) {
	a.projectID.Store(id)
	a.saved.Store(a.session.Snapshot().Version)
}

func (a *Autosaver) ProjectID() string {
	return a.projectID.Load().(string)
}

func (a *Autosaver) Start(ctx context.Context) {
	if a.running.Swap(true) {
		return
	}
	defer a.running.Store(false)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("autosave stopping")
			return
		case <-ticker.C:
			if !a.paused.Load() {
				a.SaveNow(ctx)
			}
		}
	}
}

func (a *Autosaver) Pause()  { a.paused.Store(true) }
func (a *Autosaver) Resume() { a.paused.Store(false) }

func (a *Autosaver) IsRunning() bool { return a.running.Load() }

// SaveNow overwrites the tracked project if the session changed. It reports
// whether a save happened.
func (a *Autosaver) SaveNow(ctx context.Context) bool {
	id := a.ProjectID()
	if id == "" {
		return false
	}
	st := a.session.Snapshot()
	if st.Version == a.saved.Load() {
		return false
	}
	if _, err := a.service.Overwrite(ctx, id, st); err != nil {
		a.logger.Warn("autosave failed", "project_id", id, "error", err)
		return false
	}
	a.saved.Store(st.Version)
	return true
}
