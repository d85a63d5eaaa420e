package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipforge/clipforge-agent/internal/encoder"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/project"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

// Prober supplies a clip duration when the importer did not pass one.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// MediaServer streams a clip's playable file.
type MediaServer interface {
	ServeClip(w http.ResponseWriter, r *http.Request, clip timeline.Clip) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	Session   *timeline.Session
	Projects  *project.Service
	Exports   *export.Service
	Autosave  *project.Autosaver
	Prober    Prober
	Media     MediaServer
	Tokens    TokenStore
	Doctor    *encoder.CachedDoctor
	Logger    *slog.Logger
	StartTime time.Time
	Version   string

	// DefaultQuality applies to exports that name none.
	DefaultQuality export.Quality
	// ExportDir is where exports without a destination are written.
	ExportDir string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
