package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipforge/clipforge-agent/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

// ErrNotInstalled is returned when a required executable cannot be found.
var ErrNotInstalled = errors.New("not installed or not in PATH")

// Config holds the encoder's configuration.
type Config struct {
	FFmpegPath    string        // path or name of ffmpeg; empty = "ffmpeg" on PATH
	FFprobePath   string        // path or name of ffprobe; empty = "ffprobe" on PATH
	TempDir       string        // parent of per-export scratch directories
	DoctorTimeout time.Duration // timeout for -version probes
	ProbeTimeout  time.Duration // timeout for one ffprobe call
	ExportTimeout time.Duration // timeout for a whole export
	Logger        *slog.Logger
	DebugPaths    bool // if true, log full file paths; otherwise sanitise
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(dataDir string, logger *slog.Logger) Config {
	return Config{
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		TempDir:       filepath.Join(dataDir, "tmp"),
		DoctorTimeout: 30 * time.Second,
		ProbeTimeout:  time.Minute,
		ExportTimeout: 2 * time.Hour,
		Logger:        logger,
		DebugPaths:    false,
	}
}

// commandFunc runs one subprocess, streaming stdout to the given writer.
type commandFunc func(ctx context.Context, stdout io.Writer, name string, args ...string) RunResult

// FFmpeg drives the ffmpeg and ffprobe executables. Binaries are resolved
// on each call so installing ffmpeg does not require a restart.
type FFmpeg struct {
	cfg      Config
	logger   *slog.Logger
	run      commandFunc
	lookPath func(name string) (string, error)
}

func New(cfg Config) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	f := &FFmpeg{cfg: cfg, logger: logging.WithComponent(logging.OrDiscard(cfg.Logger), "encoder")}
	f.run = f.execCommand
	f.lookPath = resolveBinary
	return f
}

// RunDoctor probes the installed encoder tools.
func (f *FFmpeg) RunDoctor(ctx context.Context) (*Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.DoctorTimeout)
	defer cancel()

	caps := &Capabilities{
		FFmpeg:   f.probeTool(ctx, f.cfg.FFmpegPath),
		FFprobe:  f.probeTool(ctx, f.cfg.FFprobePath),
		ProbedAt: time.Now(),
	}

	f.logger.Info("doctor probe complete",
		"ffmpeg", caps.FFmpeg.Available,
		"ffmpeg_version", caps.FFmpeg.Version,
		"ffprobe", caps.FFprobe.Available,
	)
	return caps, nil
}

func (f *FFmpeg) probeTool(ctx context.Context, name string) ToolInfo {
	path, err := f.lookPath(name)
	if err != nil {
		return ToolInfo{Error: err.Error()}
	}

	var out bytes.Buffer
	res := f.run(ctx, &out, path, "-version")
	if !res.IsSuccess() {
		return ToolInfo{Path: path, Error: fmt.Sprintf("exited %d: %s", res.ExitCode, truncate(res.StderrTail, 256))}
	}
	return ToolInfo{Available: true, Path: path, Version: parseVersion(out.String())}
}

// parseVersion pulls the version token out of "ffmpeg version 6.1.1 ...".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(line)
}

// execCommand is the core subprocess execution helper.
func (f *FFmpeg) execCommand(ctx context.Context, stdout io.Writer, name string, args ...string) RunResult {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	if stdout == nil {
		stdout = io.Discard
	}
	cmd.Stdout = stdout

	f.logger.Debug("executing encoder command", "bin", filepath.Base(name), "args", f.safeArgs(args))

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			if stderrBuf.Len() == 0 {
				stderrBuf.WriteString(err.Error())
			}
		}
	}

	stderrTail := stderrBuf.String()
	if exitCode != 0 {
		f.logger.Warn("encoder command failed",
			"bin", filepath.Base(name),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		f.logger.Debug("encoder command succeeded",
			"bin", filepath.Base(name),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return RunResult{ExitCode: exitCode, StderrTail: stderrTail, Duration: elapsed}
}

func (f *FFmpeg) safeArgs(args []string) []string {
	if f.cfg.DebugPaths {
		return args
	}
	out := make([]string, len(args))
	for i, a := range args {
		if filepath.IsAbs(a) {
			a = f.safePath(a)
		}
		out[i] = a
	}
	return out
}

func (f *FFmpeg) safePath(path string) string {
	if f.cfg.DebugPaths {
		return path
	}
	if s := logging.SanitizePath(path); s != path {
		return s
	}
	return filepath.Base(path)
}

// resolveBinary finds an executable by path or PATH lookup.
func resolveBinary(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s %w", filepath.Base(name), ErrNotInstalled)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
