package encoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

const missingFFmpegReason = "FFmpeg is not installed or not in PATH. Please install FFmpeg to use the export feature."

// Encode renders the plan to req.Destination. A single segment is trimmed
// and encoded in one pass. Several segments are stream-copied into a scratch
// directory, joined with the concat demuxer, then encoded once.
func (f *FFmpeg) Encode(ctx context.Context, req export.Request, progress export.ProgressFunc) (export.Result, error) {
	began := time.Now()
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}

	segs := req.Plan.Segments
	if len(segs) == 0 {
		return export.Result{}, &export.Failure{Reason: "No clips to export", Err: timeline.ErrEmptyTimeline}
	}
	bin, err := f.lookPath(f.cfg.FFmpegPath)
	if err != nil {
		return export.Result{}, &export.Failure{Reason: missingFFmpegReason, Err: err}
	}
	report(5)

	if f.cfg.ExportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.ExportTimeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return export.Result{}, export.ErrCancelled
	}
	report(10)

	params := ParamsFor(req.Plan.Quality)
	if len(segs) == 1 {
		err = f.encodeSingle(ctx, bin, segs[0], params, req.Destination)
	} else {
		err = f.encodeConcat(ctx, bin, segs, params, req.Destination, report)
	}
	if err != nil {
		return export.Result{}, err
	}

	res := export.Result{OutputPath: req.Destination, Elapsed: time.Since(began)}
	if info, statErr := os.Stat(req.Destination); statErr == nil {
		res.SizeBytes = info.Size()
	}
	f.logger.Info("export rendered",
		"segments", len(segs),
		"quality", req.Plan.Quality,
		"output", f.safePath(req.Destination),
		"size", humanize.Bytes(uint64(res.SizeBytes)),
		"duration_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

func (f *FFmpeg) encodeSingle(ctx context.Context, bin string, seg export.Segment, p Params, dest string) error {
	args := []string{
		"-i", seg.SourcePath,
		"-ss", formatSeconds(seg.RangeStart),
		"-t", formatSeconds(seg.Duration()),
	}
	args = append(args, p.args()...)
	args = append(args, "-c:a", "aac", "-movflags", "+faststart", "-y", dest)
	return f.check(ctx, "FFmpeg export failed", f.run(ctx, nil, bin, args...))
}

func (f *FFmpeg) encodeConcat(ctx context.Context, bin string, segs []export.Segment, p Params, dest string, report export.ProgressFunc) error {
	if err := os.MkdirAll(f.cfg.TempDir, 0o755); err != nil {
		return &export.Failure{Reason: "Failed to create temp directory", Err: err}
	}
	tmp, err := os.MkdirTemp(f.cfg.TempDir, "export-*")
	if err != nil {
		return &export.Failure{Reason: "Failed to create temp directory", Err: err}
	}
	defer os.RemoveAll(tmp)

	var list strings.Builder
	for i, seg := range segs {
		if ctx.Err() != nil {
			return export.ErrCancelled
		}
		part := filepath.Join(tmp, fmt.Sprintf("segment_%03d.mp4", i))
		res := f.run(ctx, nil, bin,
			"-i", seg.SourcePath,
			"-ss", formatSeconds(seg.RangeStart),
			"-t", formatSeconds(seg.Duration()),
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			"-y", part,
		)
		if err := f.check(ctx, fmt.Sprintf("Failed to trim clip %d", i+1), res); err != nil {
			return err
		}
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(part))
		report(10 + 80*(i+1)/len(segs))
	}

	listPath := filepath.Join(tmp, "concat_list.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return &export.Failure{Reason: "Failed to write concat list", Err: err}
	}

	args := []string{"-f", "concat", "-safe", "0", "-i", listPath}
	args = append(args, p.args()...)
	args = append(args, "-c:a", "aac", "-b:a", "192k", "-movflags", "+faststart", "-y", dest)
	return f.check(ctx, "FFmpeg concat failed", f.run(ctx, nil, bin, args...))
}

func (f *FFmpeg) check(ctx context.Context, reason string, res RunResult) error {
	if ctx.Err() != nil {
		return export.ErrCancelled
	}
	if !res.IsSuccess() {
		return &export.Failure{
			Reason: reason,
			Err:    fmt.Errorf("exit %d: %s", res.ExitCode, truncate(res.StderrTail, 512)),
		}
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeConcatPath quotes a path for the concat demuxer's single-quoted
// file directive.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`)
}
