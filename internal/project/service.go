package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logging.WithComponent(logging.OrDiscard(logger), "project")}
}

// Save stores st as a new project and returns it.
func (s *Service) Save(ctx context.Context, name string, st timeline.State) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled " + time.Now().Format("2006-01-02 15:04")
	}
	if err := st.CheckLayout(); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &Project{ID: NewID(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.SaveProject(ctx, p, st); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	if err := s.repo.SetConfig(ctx, ConfigKeyLastProjectID, p.ID); err != nil {
		s.logger.Warn("failed to record last project", "error", err)
	}

	s.logger.Info("project saved", "project_id", p.ID, "clips", len(st.Clips))
	return s.Get(ctx, p.ID)
}

// Overwrite replaces the stored timeline of an existing project.
func (s *Service) Overwrite(ctx context.Context, id string, st timeline.State) (*Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := st.CheckLayout(); err != nil {
		return nil, err
	}

	p.UpdatedAt = time.Now()
	if err := s.repo.SaveProject(ctx, p, st); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	s.logger.Debug("project overwritten", "project_id", id, "clips", len(st.Clips))
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Load returns the stored snapshot for id, suitable for Session.Replace.
func (s *Service) Load(ctx context.Context, id string) (timeline.State, error) {
	st, err := s.repo.LoadState(ctx, id)
	if err != nil {
		return timeline.State{}, err
	}
	if st == nil {
		return timeline.State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.repo.SetConfig(ctx, ConfigKeyLastProjectID, id); err != nil {
		s.logger.Warn("failed to record last project", "error", err)
	}
	return *st, nil
}

// LastProjectID is the most recently saved or loaded project, if any.
func (s *Service) LastProjectID(ctx context.Context) (string, error) {
	return s.repo.GetConfig(ctx, ConfigKeyLastProjectID)
}

func (s *Service) List(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) Rename(ctx context.Context, id, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.RenameProject(ctx, id, name); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}
