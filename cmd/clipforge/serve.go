package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-agent/internal/api"
	"github.com/clipforge/clipforge-agent/internal/config"
	"github.com/clipforge/clipforge-agent/internal/media"
	"github.com/clipforge/clipforge-agent/internal/project"
	"github.com/clipforge/clipforge-agent/internal/ui"
)

func newServeCmd() *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API and system tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), headless)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the system tray")
	return cmd
}

func runServe(parent context.Context, headless bool) error {
	startTime := time.Now()
	if parent == nil {
		parent = context.Background()
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	cfg := a.cfg
	logger.Info("starting clipforge agent", "version", config.Version, "data_dir", cfg.DataDir())

	authToken, err := ensureAuthToken(a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  CLIPFORGE AGENT v%-24s║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Exports:    %-45s ║\n", cfg.ExportDir())
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	initCtx, initCancel := context.WithTimeout(parent, cfg.EncoderTimeoutDoctor())
	if caps, err := a.doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial encoder probe failed", "error", err)
	} else {
		logger.Info("encoder capabilities detected",
			"ffmpeg", caps.FFmpeg.Available,
			"ffprobe", caps.FFprobe.Available,
			"ffmpeg_version", caps.FFmpeg.Version,
		)
	}
	initCancel()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	autosaver := project.NewAutosaver(a.projects, a.session, cfg.AutosaveInterval(), logger)
	if id := a.restoreLastProject(ctx); id != "" {
		autosaver.Track(id)
	}
	if cfg.AutosaveInterval() > 0 {
		go autosaver.Start(ctx)
	} else {
		logger.Info("autosave disabled")
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Session:        a.session,
		Projects:       a.projects,
		Exports:        a.exports,
		Autosave:       autosaver,
		Prober:         a.ffmpeg,
		Media:          media.NewServer(logger),
		Tokens:         a.repo,
		Doctor:         a.doctor,
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
		DefaultQuality: a.quality,
		ExportDir:      cfg.ExportDir(),
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if headless || cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session:   a.session,
			Exports:   a.exports,
			Autosave:  autosaver,
			ExportDir: cfg.ExportDir(),
			Quality:   a.quality,
			Logger:    logger,
			OnQuit:    quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if autosaver.SaveNow(shutdownCtx) {
		logger.Info("saved project on shutdown", "project_id", autosaver.ProjectID())
	}
	cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
