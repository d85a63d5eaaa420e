package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

// JobStore persists export job records. Get returns nil, nil when the job
// does not exist.
type JobStore interface {
	CreateExportJob(ctx context.Context, job *Job) error
	GetExportJob(ctx context.Context, id string) (*Job, error)
	ListExportJobs(ctx context.Context, limit int) ([]*Job, error)
	UpdateExportJobProgress(ctx context.Context, id string, progress int) error
	FinishExportJob(ctx context.Context, id, status, errMsg string, sizeBytes int64) error
}

type StartOptions struct {
	ProjectID   string
	Quality     Quality
	Format      Format
	Destination string
	Title       string
}

// maxFinishedRuns bounds how many terminal runs stay in memory. Older ones
// are still served from the JobStore.
const maxFinishedRuns = 64

type Service struct {
	encoders map[Format]Encoder
	jobs     JobStore
	logger   *slog.Logger

	mu       sync.Mutex
	runs     map[string]*run
	finished []string
}

type run struct {
	job    Job
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds an export service. An EDL encoder is registered when
// the map has none. jobs may be nil, in which case jobs live in memory only.
func NewService(encoders map[Format]Encoder, jobs JobStore, logger *slog.Logger) *Service {
	logger = logging.OrDiscard(logger)
	e := make(map[Format]Encoder, len(encoders)+1)
	for f, enc := range encoders {
		e[f] = enc
	}
	if _, ok := e[FormatEDL]; !ok {
		e[FormatEDL] = EDLEncoder{FrameRate: DefaultFrameRate}
	}
	return &Service{
		encoders: e,
		jobs:     jobs,
		logger:   logging.WithComponent(logger, "export"),
		runs:     make(map[string]*run),
	}
}

// Start validates the request, records a job and renders it in the
// background. Validation failures are returned as *Failure without creating
// a job.
func (s *Service) Start(ctx context.Context, clips []timeline.Clip, opts StartOptions) (*Job, error) {
	if opts.Format == "" {
		opts.Format = FormatMP4
	}
	if opts.Quality == "" {
		opts.Quality = QualityMedium
	}
	enc, ok := s.encoders[opts.Format]
	if !ok {
		return nil, fail("unsupported export format", fmt.Errorf("format %q", opts.Format))
	}

	plan, err := BuildPlan(clips, opts.Quality)
	if err != nil {
		if errors.Is(err, timeline.ErrEmptyTimeline) {
			return nil, fail("No clips to export", err)
		}
		return nil, fail("invalid timeline", err)
	}
	if err := ValidateDestination(opts.Destination, opts.Format); err != nil {
		if errors.Is(err, ErrNoDestination) {
			return nil, fail("no save destination", err)
		}
		return nil, fail("invalid destination", err)
	}

	now := time.Now()
	job := Job{
		ID:         uuid.NewString(),
		ProjectID:  opts.ProjectID,
		Status:     JobStatusPending,
		Quality:    opts.Quality,
		Format:     opts.Format,
		OutputPath: opts.Destination,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s.jobs != nil {
		if err := s.jobs.CreateExportJob(ctx, &job); err != nil {
			return nil, fmt.Errorf("create export job: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{job: job, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.runs[job.ID] = r
	s.mu.Unlock()

	req := Request{Plan: plan, Format: opts.Format, Destination: opts.Destination, Title: opts.Title}
	go s.execute(runCtx, r, enc, req)

	s.logger.Info("export started", "job_id", job.ID, "segments", len(plan.Segments),
		"duration", plan.Duration(), "quality", opts.Quality, "format", opts.Format)
	out := job
	return &out, nil
}

func (s *Service) execute(ctx context.Context, r *run, enc Encoder, req Request) {
	defer close(r.done)
	defer r.cancel()

	id := r.job.ID
	s.setStatus(r, JobStatusRunning)

	var (
		res Result
		err error
	)
	if ctx.Err() != nil {
		err = ErrCancelled
	} else {
		res, err = enc.Encode(ctx, req, func(p int) { s.setProgress(ctx, r, p) })
		if err != nil && ctx.Err() != nil {
			err = ErrCancelled
		}
	}

	persistCtx := context.Background()
	switch {
	case errors.Is(err, ErrCancelled):
		s.finish(persistCtx, r, JobStatusCancelled, &Failure{Reason: "export cancelled", Err: err}, 0)
		s.logger.Info("export cancelled", "job_id", id)
	case err != nil:
		var f *Failure
		if !errors.As(err, &f) {
			f = &Failure{Reason: "encoding failed", Err: err}
		}
		s.finish(persistCtx, r, JobStatusFailed, f, 0)
		s.logger.Error("export failed", "job_id", id, "error", err)
	default:
		s.setProgress(persistCtx, r, 100)
		s.finish(persistCtx, r, JobStatusCompleted, nil, res.SizeBytes)
		s.logger.Info("export completed", "job_id", id, "output", res.OutputPath,
			"size", humanize.Bytes(uint64(max(res.SizeBytes, 0))), "elapsed", res.Elapsed)
	}
}

func (s *Service) setStatus(r *run, status string) {
	s.mu.Lock()
	r.job.Status = status
	r.job.UpdatedAt = time.Now()
	s.mu.Unlock()
}

func (s *Service) setProgress(ctx context.Context, r *run, p int) {
	p = min(max(p, 0), 100)
	s.mu.Lock()
	if p <= r.job.Progress {
		s.mu.Unlock()
		return
	}
	r.job.Progress = p
	r.job.UpdatedAt = time.Now()
	id := r.job.ID
	s.mu.Unlock()

	if s.jobs != nil {
		if err := s.jobs.UpdateExportJobProgress(ctx, id, p); err != nil {
			s.logger.Warn("failed to persist export progress", "job_id", id, "error", err)
		}
	}
}

func (s *Service) finish(ctx context.Context, r *run, status string, f *Failure, size int64) {
	s.mu.Lock()
	r.job.Status = status
	r.job.SizeBytes = size
	r.job.UpdatedAt = time.Now()
	if f != nil {
		r.job.Error = f.Reason
		r.err = f
	}
	id := r.job.ID
	s.finished = append(s.finished, id)
	if len(s.finished) > maxFinishedRuns {
		delete(s.runs, s.finished[0])
		s.finished = s.finished[1:]
	}
	s.mu.Unlock()

	if s.jobs != nil {
		msg := ""
		if f != nil {
			msg = f.Error()
		}
		if err := s.jobs.FinishExportJob(ctx, id, status, msg, size); err != nil {
			s.logger.Warn("failed to persist export result", "job_id", id, "error", err)
		}
	}
}

// Get returns the job's latest state, or nil if it is unknown.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	r, ok := s.runs[id]
	if ok {
		job := r.job
		s.mu.Unlock()
		return &job, nil
	}
	s.mu.Unlock()

	if s.jobs == nil {
		return nil, nil
	}
	return s.jobs.GetExportJob(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*Job, error) {
	if s.jobs != nil {
		return s.jobs.ListExportJobs(ctx, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.runs))
	for _, r := range s.runs {
		job := r.job
		out = append(out, &job)
	}
	return out, nil
}

// Cancel requests cooperative cancellation of a pending or running job.
// Unknown and finished jobs return ErrNotRunning.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	r, ok := s.runs[id]
	if !ok || r.job.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	s.mu.Unlock()
	r.cancel()
	return nil
}

// Wait blocks until the job reaches a terminal state and returns it. The
// error is the job's *Failure for failed or cancelled jobs. Jobs evicted
// from memory are read back from the JobStore.
func (s *Service) Wait(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	r, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		return s.waitEvicted(ctx, id)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job := r.job
	return &job, r.err
}

func (s *Service) waitEvicted(ctx context.Context, id string) (*Job, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	job, err := s.jobs.GetExportJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil || !job.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	if job.Status != JobStatusCompleted {
		return job, &Failure{Reason: job.Error}
	}
	return job, nil
}

// Run starts an export and waits for it to finish.
func (s *Service) Run(ctx context.Context, clips []timeline.Clip, opts StartOptions) (*Job, error) {
	job, err := s.Start(ctx, clips, opts)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Cancel(job.ID) })
	defer stop()
	return s.Wait(context.Background(), job.ID)
}
