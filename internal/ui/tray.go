// Package ui provides the system tray menu with transport and export
// shortcuts for the shared timeline session.
package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"

	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/project"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

//go:embed icon.png
var iconBytes []byte

const refreshInterval = time.Second

type Tray struct {
	session   *timeline.Session
	exports   *export.Service
	autosave  *project.Autosaver
	exportDir string
	quality   export.Quality
	logger    *slog.Logger

	statusItem   *systray.MenuItem
	clipsItem    *systray.MenuItem
	playItem     *systray.MenuItem
	exportItem   *systray.MenuItem
	autosaveItem *systray.MenuItem

	mu        sync.Mutex
	exporting bool
	lastJob   *export.Job

	onQuit func()
}

type TrayConfig struct {
	Session   *timeline.Session
	Exports   *export.Service
	Autosave  *project.Autosaver
	ExportDir string
	Quality   export.Quality
	Logger    *slog.Logger
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	if cfg.Quality == "" {
		cfg.Quality = export.QualityMedium
	}
	return &Tray{
		session:   cfg.Session,
		exports:   cfg.Exports,
		autosave:  cfg.Autosave,
		exportDir: cfg.ExportDir,
		quality:   cfg.Quality,
		logger:    logging.WithComponent(logging.OrDiscard(cfg.Logger), "tray"),
		onQuit:    cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("ClipForge")
	systray.SetTooltip("ClipForge Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.clipsItem = systray.AddMenuItem("Clips: 0", "Clips on the timeline")
	t.clipsItem.Disable()

	systray.AddSeparator()

	t.playItem = systray.AddMenuItem("Play", "Play or pause the timeline")
	t.exportItem = systray.AddMenuItem("Export", "Export the timeline")
	t.autosaveItem = systray.AddMenuItem("Pause Autosave", "Pause or resume autosave")
	if t.autosave == nil {
		t.autosaveItem.Hide()
	}

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit ClipForge Agent")

	ticker := time.NewTicker(refreshInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-t.playItem.ClickedCh:
				t.togglePlay()
			case <-t.exportItem.ClickedCh:
				go t.handleExport()
			case <-t.autosaveItem.ClickedCh:
				t.toggleAutosave()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.refresh()
	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	st := t.session.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.statusItem.SetTitle(statusLine(st, t.exporting, t.lastJob))
	t.clipsItem.SetTitle(clipsLine(st))
	t.playItem.SetTitle(playLabel(st))
	if len(st.Clips) == 0 || t.exporting {
		t.playItem.Disable()
		t.exportItem.Disable()
	} else {
		t.playItem.Enable()
		t.exportItem.Enable()
	}
}

func (t *Tray) togglePlay() {
	err := t.session.Update(func(s *timeline.Store) error {
		_, err := s.TogglePlay()
		return err
	})
	if err != nil {
		t.logger.Warn("toggle play failed", "error", err)
	}
	t.refresh()
}

func (t *Tray) toggleAutosave() {
	if t.autosave == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.autosaveItem.Checked() {
		t.autosave.Resume()
		t.autosaveItem.Uncheck()
		t.autosaveItem.SetTitle("Pause Autosave")
	} else {
		t.autosave.Pause()
		t.autosaveItem.Check()
		t.autosaveItem.SetTitle("Resume Autosave")
	}
}

func (t *Tray) handleExport() {
	if t.exports == nil {
		return
	}

	t.mu.Lock()
	if t.exporting {
		t.mu.Unlock()
		return
	}
	t.exporting = true
	t.mu.Unlock()

	opts := export.StartOptions{
		Quality:     t.quality,
		Destination: filepath.Join(t.exportDir, export.DefaultFilename(time.Now(), export.FormatMP4)),
	}
	if t.autosave != nil {
		opts.ProjectID = t.autosave.ProjectID()
	}
	job, err := t.exports.Run(context.Background(), t.session.Snapshot().Clips, opts)
	if err != nil {
		t.logger.Error("tray export failed", "error", err)
	}

	t.mu.Lock()
	t.exporting = false
	t.lastJob = job
	t.mu.Unlock()
	t.refresh()
}

func statusLine(st timeline.State, exporting bool, last *export.Job) string {
	switch {
	case exporting:
		return "Status: Exporting"
	case st.IsPlaying:
		return "Status: Playing"
	case last != nil && last.Status == export.JobStatusCompleted:
		return fmt.Sprintf("Status: Exported %s %s", humanize.Bytes(uint64(max(last.SizeBytes, 0))), humanize.Time(last.UpdatedAt))
	case last != nil && last.Status == export.JobStatusFailed:
		return "Status: Export failed"
	default:
		return "Status: Idle"
	}
}

func clipsLine(st timeline.State) string {
	n := len(st.Clips)
	if n == 0 {
		return "Clips: 0"
	}
	return fmt.Sprintf("Clips: %s (%s)", humanize.Comma(int64(n)), timeline.FormatDuration(st.TotalDuration()))
}

func playLabel(st timeline.State) string {
	if st.IsPlaying {
		return "Pause"
	}
	return "Play"
}

func (t *Tray) Quit() {
	systray.Quit()
}
