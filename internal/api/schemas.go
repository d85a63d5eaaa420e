package api

import (
	"time"

	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/project"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string            `json:"state"`
	LastError     string            `json:"last_error,omitempty"`
	ClipCount     int               `json:"clip_count"`
	TotalDuration float64           `json:"total_duration"`
	IsPlaying     bool              `json:"is_playing"`
	ProjectID     string            `json:"project_id,omitempty"`
	ExportsActive int               `json:"exports_active"`
	ActiveExport  *JobResponse      `json:"active_export,omitempty"`
	Encoder       *EncoderStatusRsp `json:"encoder,omitempty"`
}

type EncoderStatusRsp struct {
	CanExport     bool   `json:"can_export"`
	CanProbe      bool   `json:"can_probe"`
	FFmpegVersion string `json:"ffmpeg_version,omitempty"`
	LastProbeAt   string `json:"last_probe_at,omitempty"`
}

// TimelineResponse is the snapshot plus the derived values a UI renders.
type TimelineResponse struct {
	State                timeline.State `json:"state"`
	TotalDuration        float64        `json:"total_duration"`
	ZoomPercent          int            `json:"zoom_percent"`
	CurrentClipID        string         `json:"current_clip_id,omitempty"`
	EffectivePreviewTime *float64       `json:"effective_preview_time,omitempty"`
}

type ImportClipRequest struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration,omitempty"`
}

type UpdateClipRequest struct {
	Name *string `json:"name,omitempty"`
}

type TrimRequest struct {
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

type TrimDragRequest struct {
	ClipID string  `json:"clip_id,omitempty"`
	Type   string  `json:"type,omitempty"`
	Value  float64 `json:"value"`
}

type SplitRequest struct {
	Time *float64 `json:"time,omitempty"`
}

type SplitResponse struct {
	First  timeline.Clip `json:"first"`
	Second timeline.Clip `json:"second"`
}

type SelectRequest struct {
	ClipID string `json:"clip_id"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type TickRequest struct {
	Position float64 `json:"position"`
}

type PlayResponse struct {
	Playing bool          `json:"playing"`
	Cue     *timeline.Cue `json:"cue,omitempty"`
}

type DeletionResponse struct {
	ClipID  string                   `json:"clip_id"`
	Preview timeline.DeletionPreview `json:"preview"`
	Message string                   `json:"message"`
}

// ZoomRequest carries one zoom intent. Action is one of in, out, reset, set
// or pinch; the viewport fields are optional and anchor the zoom at the
// pointer.
type ZoomRequest struct {
	Action        string   `json:"action"`
	Level         float64  `json:"level,omitempty"`
	Delta         float64  `json:"delta,omitempty"`
	PointerOffset *float64 `json:"pointer_offset,omitempty"`
	ScrollOffset  float64  `json:"scroll_offset,omitempty"`
	Width         float64  `json:"width,omitempty"`
}

type ZoomResponse struct {
	ZoomLevel    float64 `json:"zoom_level"`
	ZoomPercent  int     `json:"zoom_percent"`
	ScrollOffset float64 `json:"scroll_offset"`
}

type PlanResponse struct {
	Quality  export.Quality   `json:"quality"`
	Duration float64          `json:"duration"`
	Segments []export.Segment `json:"segments"`
}

type StartExportRequest struct {
	Quality     string `json:"quality,omitempty"`
	Format      string `json:"format,omitempty"`
	Destination string `json:"destination,omitempty"`
	Title       string `json:"title,omitempty"`
}

type JobResponse struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id,omitempty"`
	Status     string `json:"status"`
	Quality    string `json:"quality"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type SaveProjectRequest struct {
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ClipCount int     `json:"clip_count"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *export.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		ProjectID:  j.ProjectID,
		Status:     j.Status,
		Quality:    string(j.Quality),
		Format:     string(j.Format),
		OutputPath: j.OutputPath,
		Progress:   j.Progress,
		Error:      j.Error,
		SizeBytes:  j.SizeBytes,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
}

func ProjectToResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		ClipCount: p.ClipCount,
		Duration:  p.Duration,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func timelineResponse(s *timeline.Store) TimelineResponse {
	resp := TimelineResponse{
		State:         s.Snapshot(),
		TotalDuration: s.TotalDuration(),
		ZoomPercent:   s.ZoomPercent(),
	}
	if c, ok := s.CurrentClip(); ok {
		resp.CurrentClipID = c.ID
	}
	if t, ok := s.EffectivePreviewTime(); ok {
		resp.EffectivePreviewTime = &t
	}
	return resp
}
