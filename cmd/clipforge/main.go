package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-agent/internal/config"
	"github.com/clipforge/clipforge-agent/internal/db"
	"github.com/clipforge/clipforge-agent/internal/encoder"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/project"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clipforge",
		Short:         "ClipForge timeline agent",
		Long:          "ClipForge edits a non-linear video timeline locally and exports it with ffmpeg.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), false)
		},
	}
	root.AddCommand(
		newServeCmd(),
		newShellCmd(),
		newExportCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// app holds the components every subcommand shares.
type app struct {
	cfg      *config.EnvConfig
	logger   *slog.Logger
	database *db.DB
	repo     *project.SQLiteRepository
	session  *timeline.Session
	ffmpeg   *encoder.FFmpeg
	doctor   *encoder.CachedDoctor
	exports  *export.Service
	projects *project.Service
	quality  export.Quality
}

func openApp() (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.TempDir(), cfg.ExportDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	quality, err := export.ParseQuality(cfg.ExportQuality())
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := project.NewRepository(database.Conn())

	store := timeline.NewStore(
		timeline.WithThresholds(cfg.Thresholds()),
		timeline.WithLogger(logger),
	)

	ffmpeg := encoder.New(encoder.Config{
		FFmpegPath:    cfg.FFmpegPath(),
		FFprobePath:   cfg.FFprobePath(),
		TempDir:       cfg.TempDir(),
		DoctorTimeout: cfg.EncoderTimeoutDoctor(),
		ProbeTimeout:  cfg.EncoderTimeoutProbe(),
		ExportTimeout: cfg.EncoderTimeoutExport(),
		Logger:        logger,
		DebugPaths:    logging.ParseLevel(cfg.LogLevel()) == slog.LevelDebug,
	})

	exports := export.NewService(map[export.Format]export.Encoder{
		export.FormatMP4: ffmpeg,
		export.FormatEDL: export.EDLEncoder{FrameRate: export.DefaultFrameRate},
	}, repo, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		database: database,
		repo:     repo,
		session:  timeline.NewSession(store),
		ffmpeg:   ffmpeg,
		doctor:   encoder.NewCachedDoctor(ffmpeg, config.DefaultDoctorTTL, logger),
		exports:  exports,
		projects: project.NewService(repo, logger),
		quality:  quality,
	}, nil
}

func (a *app) Close() error {
	return a.database.Close()
}

// restoreLastProject loads the most recently saved or loaded project into
// the session and returns its id.
func (a *app) restoreLastProject(ctx context.Context) string {
	id, err := a.projects.LastProjectID(ctx)
	if err != nil || id == "" {
		return ""
	}
	st, err := a.projects.Load(ctx, id)
	if err != nil {
		a.logger.Warn("failed to restore last project", "project_id", id, "error", err)
		return ""
	}
	if err := a.session.Replace(st); err != nil {
		a.logger.Warn("last project failed validation", "project_id", id, "error", err)
		return ""
	}
	a.logger.Info("restored last project", "project_id", id, "clips", len(st.Clips))
	return id
}

func ensureAuthToken(repo project.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, project.ConfigKeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, project.ConfigKeyAuthToken, token); err != nil {
		return "", err
	}

	return token, nil
}
