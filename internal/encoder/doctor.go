package encoder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clipforge/clipforge-agent/internal/logging"
)

const defaultCacheTTL = 5 * time.Minute

// Doctor probes encoder tool availability.
type Doctor interface {
	RunDoctor(ctx context.Context) (*Capabilities, error)
}

// CachedDoctor wraps a Doctor to cache probe results with a configurable TTL.
// This avoids spawning ffmpeg -version on every status request.
type CachedDoctor struct {
	doctor Doctor
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around doctor probes.
func NewCachedDoctor(doctor Doctor, ttl time.Duration, logger *slog.Logger) *CachedDoctor {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedDoctor{
		doctor: doctor,
		ttl:    ttl,
		logger: logging.OrDiscard(logger),
	}
}

// Get returns the cached capabilities while they are younger than the TTL
// and probes again otherwise.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	if caps := d.fresh(); caps != nil {
		return caps, nil
	}
	return d.Refresh(ctx)
}

func (d *CachedDoctor) fresh() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.cached == nil || time.Since(d.cached.ProbedAt) >= d.ttl {
		return nil
	}
	return d.cached
}

// Peek returns the last probe result without probing; nil before the first.
func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh probes the tools now. A failed probe keeps serving the previous
// result when there is one.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.doctor.RunDoctor(ctx)
	if err != nil {
		if d.cached == nil {
			return nil, err
		}
		d.logger.Warn("encoder probe failed, keeping previous capabilities", "error", err)
		return d.cached, nil
	}

	if prev := d.cached; prev == nil || prev.CanExport() != caps.CanExport() || prev.CanProbe() != caps.CanProbe() {
		d.logger.Info("encoder capabilities changed",
			"can_export", caps.CanExport(),
			"can_probe", caps.CanProbe(),
			"ffmpeg_version", caps.FFmpeg.Version,
		)
	}
	d.cached = caps
	return caps, nil
}

// Invalidate drops the cached result so the next Get probes again.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
