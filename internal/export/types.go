package export

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Quality is the encoder tier. The encoder maps it to concrete parameters;
// nothing in this package knows their names.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case QualityLow, QualityMedium, QualityHigh:
		return q, nil
	case "":
		return QualityMedium, nil
	default:
		return "", fmt.Errorf("unknown quality %q (want low, medium or high)", s)
	}
}

type Format string

const (
	FormatMP4 Format = "mp4"
	FormatEDL Format = "edl"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatMP4, FormatEDL:
		return f, nil
	case "":
		return FormatMP4, nil
	default:
		return "", fmt.Errorf("unknown format %q (want mp4 or edl)", s)
	}
}

// Segment is one committed source range to render, in sequence order.
type Segment struct {
	ClipID     string  `json:"clip_id"`
	Name       string  `json:"name"`
	SourcePath string  `json:"source_path"`
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
}

func (s Segment) Duration() float64 { return s.RangeEnd - s.RangeStart }

type Plan struct {
	Segments []Segment `json:"segments"`
	Quality  Quality   `json:"quality"`
}

// Duration is the length of the rendered output.
func (p Plan) Duration() float64 {
	var d float64
	for _, s := range p.Segments {
		d += s.Duration()
	}
	return d
}

type Request struct {
	Plan        Plan   `json:"plan"`
	Format      Format `json:"format"`
	Destination string `json:"destination"`
	Title       string `json:"title,omitempty"`
}

type Result struct {
	OutputPath string        `json:"output_path"`
	SizeBytes  int64         `json:"size_bytes"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ProgressFunc receives percentages in [0, 100].
type ProgressFunc func(percent int)

// Encoder renders a plan to its destination.
type Encoder interface {
	Encode(ctx context.Context, req Request, progress ProgressFunc) (Result, error)
}

var (
	ErrCancelled     = errors.New("export cancelled")
	ErrNoDestination = errors.New("no save destination")
	ErrNotRunning    = errors.New("export job not running")
)

// Failure is the terminal error of an export. Reason is shown to the user.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Reason
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(reason string, err error) error {
	return &Failure{Reason: reason, Err: err}
}

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job is the persisted record of one export run.
type Job struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id,omitempty"`
	Status     string    `json:"status"`
	Quality    Quality   `json:"quality"`
	Format     Format    `json:"format"`
	OutputPath string    `json:"output_path"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
