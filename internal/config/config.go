// Package config provides configuration management for the ClipForge agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/clipforge-agent/internal/timeline"
)

const (
	// Default values
	DefaultPort          = 8790
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".clipforge"
	DefaultExportQuality = "medium"
	DefaultDoctorTTL     = 5 * time.Minute
	DefaultAutosave      = 30 * time.Second

	// Environment variable names
	EnvPort          = "CLIPFORGE_PORT"
	EnvLogLevel      = "CLIPFORGE_LOG_LEVEL"
	EnvDataDir       = "CLIPFORGE_DATA_DIR"
	EnvFFmpegPath    = "CLIPFORGE_FFMPEG_PATH"
	EnvFFprobePath   = "CLIPFORGE_FFPROBE_PATH"
	EnvHeadless      = "CLIPFORGE_HEADLESS"
	EnvExportQuality = "CLIPFORGE_EXPORT_QUALITY"
	EnvExportDir     = "CLIPFORGE_EXPORT_DIR"
	EnvAutosaveSecs  = "CLIPFORGE_AUTOSAVE_SECONDS"

	// Timeline threshold overrides
	EnvMarkerEpsilon = "CLIPFORGE_MARKER_EPSILON"
	EnvEndThreshold  = "CLIPFORGE_END_THRESHOLD"
	EnvPinchGapMs    = "CLIPFORGE_PINCH_GAP_MS"

	// Database filename
	DBFilename = "clipforge.db"

	// Encoder timeouts
	DefaultEncoderTimeoutDoctor = 30   // seconds
	DefaultEncoderTimeoutProbe  = 60   // seconds
	DefaultEncoderTimeoutExport = 7200 // 2 hours
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	TempDir() string
	HistoryPath() string
	FFmpegPath() string
	FFprobePath() string
	Headless() bool
	ExportQuality() string
	ExportDir() string
	AutosaveInterval() time.Duration
	Thresholds() timeline.Thresholds
	EncoderTimeoutDoctor() time.Duration
	EncoderTimeoutProbe() time.Duration
	EncoderTimeoutExport() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	ffmpegPath    string
	ffprobePath   string
	headless      bool
	exportQuality string
	exportDir     string
	autosave      time.Duration
	thresholds    timeline.Thresholds
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		exportQuality: DefaultExportQuality,
		autosave:      DefaultAutosave,
		thresholds:    timeline.DefaultThresholds(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if q := os.Getenv(EnvExportQuality); q != "" {
		switch q = strings.ToLower(q); q {
		case "low", "medium", "high":
			cfg.exportQuality = q
		default:
			return nil, fmt.Errorf("invalid %s: want low, medium or high", EnvExportQuality)
		}
	}

	cfg.exportDir = os.Getenv(EnvExportDir)

	// 0 disables autosave
	if v := os.Getenv(EnvAutosaveSecs); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative integer", EnvAutosaveSecs)
		}
		cfg.autosave = time.Duration(secs) * time.Second
	}

	if err := positiveFloat(EnvMarkerEpsilon, &cfg.thresholds.MarkerEpsilon); err != nil {
		return nil, err
	}
	if err := positiveFloat(EnvEndThreshold, &cfg.thresholds.EndOfClipGuard); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvPinchGapMs); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvPinchGapMs)
		}
		cfg.thresholds.PinchGap = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

func positiveFloat(env string, dst *float64) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	if f <= 0 {
		return fmt.Errorf("invalid %s: must be positive", env)
	}
	*dst = f
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// TempDir holds intermediate export segments
func (c *EnvConfig) TempDir() string {
	return filepath.Join(c.dataDir, "tmp")
}

func (c *EnvConfig) HistoryPath() string {
	return filepath.Join(c.dataDir, "shell_history")
}

func (c *EnvConfig) FFmpegPath() string {
	if c.ffmpegPath != "" {
		return c.ffmpegPath
	}
	return "ffmpeg"
}

func (c *EnvConfig) FFprobePath() string {
	if c.ffprobePath != "" {
		return c.ffprobePath
	}
	return "ffprobe"
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) ExportQuality() string {
	return c.exportQuality
}

// ExportDir is where exports without an explicit destination are written
func (c *EnvConfig) ExportDir() string {
	if c.exportDir != "" {
		return c.exportDir
	}
	return filepath.Join(c.dataDir, "exports")
}

func (c *EnvConfig) AutosaveInterval() time.Duration {
	return c.autosave
}

// Thresholds returns the timeline comparison thresholds
func (c *EnvConfig) Thresholds() timeline.Thresholds {
	return c.thresholds
}

func (c *EnvConfig) EncoderTimeoutDoctor() time.Duration {
	return time.Duration(DefaultEncoderTimeoutDoctor) * time.Second
}

func (c *EnvConfig) EncoderTimeoutProbe() time.Duration {
	return time.Duration(DefaultEncoderTimeoutProbe) * time.Second
}

func (c *EnvConfig) EncoderTimeoutExport() time.Duration {
	return time.Duration(DefaultEncoderTimeoutExport) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
