package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge-agent/internal/config"
	"github.com/clipforge/clipforge-agent/internal/encoder"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/shell"
)

func newShellCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Edit the timeline interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			sh := shell.New(shell.Config{
				Session:     a.session,
				Projects:    a.projects,
				Exports:     a.exports,
				Prober:      a.ffmpeg,
				HistoryPath: a.cfg.HistoryPath(),
				ExportDir:   a.cfg.ExportDir(),
				Out:         cmd.OutOrStdout(),
				Logger:      a.logger,
			})
			if projectID != "" {
				sh.Handle(ctx, "load "+projectID)
			}
			return sh.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to load on start")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		projectID string
		quality   string
		out       string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved project",
		Example: `  clipforge export --project 3f2c... --quality high --out /tmp/cut.mp4
  clipforge export --project 3f2c... --format edl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return errors.New("--project is required")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			opts := export.StartOptions{ProjectID: projectID, Quality: a.quality, Destination: out}
			if quality != "" {
				if opts.Quality, err = export.ParseQuality(quality); err != nil {
					return err
				}
			}
			if format == "" && strings.EqualFold(filepath.Ext(out), ".edl") {
				format = string(export.FormatEDL)
			}
			if opts.Format, err = export.ParseFormat(format); err != nil {
				return err
			}

			ctx := cmd.Context()
			p, err := a.projects.Get(ctx, projectID)
			if err != nil {
				return err
			}
			st, err := a.projects.Load(ctx, projectID)
			if err != nil {
				return err
			}
			opts.Title = p.Name
			if opts.Destination == "" {
				opts.Destination = filepath.Join(a.cfg.ExportDir(), export.DefaultFilename(time.Now(), opts.Format))
			}
			if abs, err := filepath.Abs(opts.Destination); err == nil {
				opts.Destination = abs
			}

			job, err := a.exports.Start(ctx, st.Clips, opts)
			if err != nil {
				return err
			}
			job, err = waitWithProgress(ctx, a.exports, job.ID, func(progress int) {
				fmt.Fprintf(cmd.OutOrStdout(), "\rExporting %s: %3d%%", p.Name, progress)
			})
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", job.OutputPath, humanize.Bytes(uint64(max(job.SizeBytes, 0))))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "saved project id")
	cmd.Flags().StringVar(&quality, "quality", "", "low, medium or high (default from CLIPFORGE_EXPORT_QUALITY)")
	cmd.Flags().StringVar(&out, "out", "", "destination file (default in the export directory)")
	cmd.Flags().StringVar(&format, "format", "", "mp4 or edl (default from --out extension)")
	return cmd
}

// waitWithProgress polls the job until it finishes, reporting each progress
// change. Interrupting ctx cancels the export.
func waitWithProgress(ctx context.Context, svc *export.Service, id string, report func(int)) (*export.Job, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		job, err := svc.Get(context.Background(), id)
		if err != nil {
			return nil, err
		}
		if job.Progress != last {
			last = job.Progress
			report(last)
		}
		if job.Terminal() {
			return svc.Wait(context.Background(), id)
		}
		select {
		case <-ctx.Done():
			_ = svc.Cancel(id)
			return svc.Wait(context.Background(), id)
		case <-ticker.C:
		}
	}
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check ffmpeg and ffprobe availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.EncoderTimeoutDoctor())
			defer cancel()
			caps, err := a.doctor.Refresh(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTool(w, "ffmpeg", caps.FFmpeg)
			printTool(w, "ffprobe", caps.FFprobe)
			fmt.Fprintf(w, "export: %v  probe: %v\n", caps.CanExport(), caps.CanProbe())
			if !caps.CanExport() {
				return errors.New("ffmpeg is required for media exports")
			}
			return nil
		},
	}
}

func printTool(w io.Writer, name string, tool encoder.ToolInfo) {
	if !tool.Available {
		fmt.Fprintf(w, "%-8s missing (%s)\n", name, tool.Error)
		return
	}
	fmt.Fprintf(w, "%-8s %s  %s\n", name, tool.Version, tool.Path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipforge %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildTime)
		},
	}
}
