package shell

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

// Handle runs one command line. It returns false when the shell should exit.
func (s *Shell) Handle(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := strings.TrimPrefix(parts[0], "/"), parts[1:]

	var err error
	switch cmd {
	case "exit", "quit", "q":
		fmt.Fprintln(s.out, "Exiting shell...")
		return false
	case "help", "h":
		s.printHelp()
	case "ls", "status", "s":
		s.printTimeline()
	case "import":
		err = s.importClip(ctx, args)
	case "remove", "rm":
		err = s.withClip(args, 1, "remove <clip>", func(st *timeline.Store, id string, _ []string) error {
			return st.RemoveClip(id)
		})
	case "select":
		if len(args) == 0 {
			err = s.session.Update(func(st *timeline.Store) error { return st.SelectClip("") })
			break
		}
		err = s.withClip(args, 1, "select <clip>", func(st *timeline.Store, id string, _ []string) error {
			return st.SelectClip(id)
		})
	case "rename":
		err = s.withClip(args, 2, "rename <clip> <name>", func(st *timeline.Store, id string, rest []string) error {
			name := strings.Join(rest, " ")
			return st.UpdateClip(id, timeline.ClipPatch{Name: &name})
		})
	case "trim":
		err = s.trim(args)
	case "preview":
		err = s.preview(args)
	case "delete":
		err = s.proposeDelete(args)
	case "confirm":
		err = s.confirmDelete()
	case "cancel":
		err = s.session.Update(func(st *timeline.Store) error {
			st.CancelDelete()
			return nil
		})
	case "split":
		err = s.split(args)
	case "repack":
		err = s.session.Update(func(st *timeline.Store) error {
			st.Repack()
			return nil
		})
	case "clear":
		err = s.session.Update(func(st *timeline.Store) error {
			st.ClearTimeline()
			return nil
		})
	case "seek":
		err = s.withFloats(args, 1, "seek <seconds>", func(st *timeline.Store, v []float64) error {
			return st.SetCurrentTime(v[0])
		})
	case "play":
		err = s.play()
	case "pause":
		err = s.session.Update(func(st *timeline.Store) error {
			st.Pause()
			return nil
		})
	case "tick":
		err = s.tick(args)
	case "zoom":
		err = s.zoom(args)
	case "plan":
		err = s.plan(args)
	case "export":
		err = s.export(ctx, args)
	case "save":
		err = s.save(ctx, args)
	case "load":
		err = s.load(ctx, args)
	case "projects":
		err = s.listProjects(ctx)
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help')\n", cmd)
		return true
	}

	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return true
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

// resolveClip accepts a 1-based position or a clip id.
func resolveClip(st timeline.State, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(st.Clips) {
			return "", fmt.Errorf("%w: no clip at position %d", timeline.ErrInvalidReference, n)
		}
		return st.Clips[n-1].ID, nil
	}
	if _, ok := st.ClipByID(arg); !ok {
		return "", fmt.Errorf("%w: %s", timeline.ErrInvalidReference, arg)
	}
	return arg, nil
}

func (s *Shell) withClip(args []string, minArgs int, usage string, fn func(st *timeline.Store, id string, rest []string) error) error {
	if len(args) < minArgs {
		return usageError(usage)
	}
	return s.session.Update(func(st *timeline.Store) error {
		id, err := resolveClip(st.Snapshot(), args[0])
		if err != nil {
			return err
		}
		return fn(st, id, args[1:])
	})
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", a)
		}
		out[i] = v
	}
	return out, nil
}

func (s *Shell) withFloats(args []string, n int, usage string, fn func(st *timeline.Store, v []float64) error) error {
	if len(args) < n {
		return usageError(usage)
	}
	v, err := parseFloats(args[:n])
	if err != nil {
		return err
	}
	return s.session.Update(func(st *timeline.Store) error { return fn(st, v) })
}

func (s *Shell) importClip(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("import <path> [duration]")
	}
	path := args[0]
	if !timeline.IsVideoFile(path) {
		return fmt.Errorf("%w: %s", timeline.ErrUnsupportedFormat, filepath.Base(path))
	}

	var duration float64
	if len(args) > 1 {
		v, err := parseFloats(args[1:2])
		if err != nil {
			return err
		}
		duration = v[0]
	} else {
		if s.prober == nil {
			return errors.New("duration required (ffprobe unavailable)")
		}
		d, err := s.prober.ProbeDuration(ctx, path)
		if err != nil {
			return fmt.Errorf("could not read duration: %w", err)
		}
		duration = d
	}

	var clip timeline.Clip
	err := s.session.Update(func(st *timeline.Store) error {
		var err error
		clip, err = st.ImportClip(filepath.Base(path), path, duration)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Imported %s (%s) at %s\n", clip.Name, timeline.FormatDuration(clip.Duration), timeline.FormatDuration(clip.StartTime))
	return nil
}

func (s *Shell) trim(args []string) error {
	if len(args) < 3 {
		return usageError("trim <clip> <in> <out>")
	}
	v, err := parseFloats(args[1:3])
	if err != nil {
		return err
	}
	var c timeline.Clip
	err = s.withClip(args, 3, "", func(st *timeline.Store, id string, _ []string) error {
		var err error
		c, err = st.SetTrimPoints(id, v[0], v[1])
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s markers: in %s, out %s\n", c.Name, timeline.FormatDuration(c.TrimStart), timeline.FormatDuration(c.TrimEnd))
	return nil
}

func (s *Shell) preview(args []string) error {
	if len(args) == 0 {
		return usageError("preview <clip>")
	}
	st := s.session.Snapshot()
	id, err := resolveClip(st, args[0])
	if err != nil {
		return err
	}
	msg, _ := st.DeletionMessage(id)
	fmt.Fprintln(s.out, msg)
	return nil
}

func (s *Shell) proposeDelete(args []string) error {
	var msg string
	err := s.withClip(args, 1, "delete <clip>", func(st *timeline.Store, id string, _ []string) error {
		if _, err := st.ProposeDelete(id); err != nil {
			return err
		}
		msg, _ = st.Snapshot().DeletionMessage(id)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, msg)
	fmt.Fprintln(s.out, "Type 'confirm' to apply or 'cancel' to keep the clip.")
	return nil
}

func (s *Shell) confirmDelete() error {
	var c timeline.Clip
	err := s.session.Update(func(st *timeline.Store) error {
		id := st.Snapshot().PendingDeleteClipID
		if id == "" {
			return fmt.Errorf("%w: no pending delete", timeline.ErrInvalidReference)
		}
		var err error
		c, err = st.ConfirmDelete(id)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s is now %s\n", c.Name, timeline.FormatDuration(c.Duration))
	return nil
}

func (s *Shell) split(args []string) error {
	var a, b timeline.Clip
	var err error
	if len(args) == 0 {
		err = s.session.Update(func(st *timeline.Store) error {
			a, b, err = st.SplitAtPlayhead()
			return err
		})
	} else {
		if len(args) < 2 {
			return usageError("split [<clip> <offset>]")
		}
		v, perr := parseFloats(args[1:2])
		if perr != nil {
			return perr
		}
		err = s.withClip(args, 2, "", func(st *timeline.Store, id string, _ []string) error {
			var err error
			a, b, err = st.SplitClipAtPlayhead(id, v[0])
			return err
		})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Split into %s and %s\n", timeline.FormatDuration(a.Duration), timeline.FormatDuration(b.Duration))
	return nil
}

func (s *Shell) play() error {
	var cue timeline.Cue
	err := s.session.Update(func(st *timeline.Store) error {
		var err error
		cue, err = st.Play()
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Playing %s from %s\n", filepath.Base(cue.PlayablePath), timeline.FormatDuration(cue.SeekSource))
	return nil
}

func (s *Shell) tick(args []string) error {
	var res timeline.TickResult
	err := s.withFloats(args, 1, "tick <source-seconds>", func(st *timeline.Store, v []float64) error {
		var err error
		res, err = st.Tick(v[0])
		return err
	})
	if err != nil {
		return err
	}
	switch {
	case res.Ignored:
		fmt.Fprintln(s.out, "Not playing")
	case res.Stopped:
		fmt.Fprintf(s.out, "Reached end at %s\n", timeline.FormatDuration(res.CurrentTime))
	case res.Cue != nil:
		fmt.Fprintf(s.out, "Now playing %s\n", filepath.Base(res.Cue.PlayablePath))
	default:
		fmt.Fprintf(s.out, "At %s\n", timeline.FormatDuration(res.CurrentTime))
	}
	return nil
}

func (s *Shell) zoom(args []string) error {
	if len(args) == 0 {
		return usageError("zoom in|out|reset|<pixels-per-second>")
	}
	var pct int
	err := s.session.Update(func(st *timeline.Store) error {
		switch args[0] {
		case "in":
			st.ZoomIn()
		case "out":
			st.ZoomOut()
		case "reset":
			st.ResetZoom()
		default:
			v, err := parseFloats(args[:1])
			if err != nil {
				return err
			}
			if _, err := st.SetZoomLevel(v[0]); err != nil {
				return err
			}
		}
		pct = st.ZoomPercent()
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Zoom %d%%\n", pct)
	return nil
}

func (s *Shell) plan(args []string) error {
	var q string
	if len(args) > 0 {
		q = args[0]
	}
	quality, err := export.ParseQuality(q)
	if err != nil {
		return err
	}
	plan, err := export.BuildPlan(s.session.Snapshot().Clips, quality)
	if err != nil {
		return err
	}
	for i, seg := range plan.Segments {
		fmt.Fprintf(s.out, "%2d. %-24s %s - %s\n", i+1, seg.Name,
			timeline.FormatDuration(seg.RangeStart), timeline.FormatDuration(seg.RangeEnd))
	}
	fmt.Fprintf(s.out, "Output: %s at %s quality\n", timeline.FormatDuration(plan.Duration()), plan.Quality)
	return nil
}

func (s *Shell) export(ctx context.Context, args []string) error {
	if s.exports == nil {
		return errors.New("export is not available")
	}
	opts := export.StartOptions{ProjectID: s.projectID}
	for _, a := range args {
		if q, err := export.ParseQuality(a); err == nil && a != "" {
			opts.Quality = q
			continue
		}
		opts.Destination = a
	}
	if opts.Destination == "" {
		opts.Destination = filepath.Join(s.exportDir, export.DefaultFilename(time.Now(), export.FormatMP4))
	}
	if strings.EqualFold(filepath.Ext(opts.Destination), ".edl") {
		opts.Format = export.FormatEDL
	}

	job, err := s.exports.Run(ctx, s.session.Snapshot().Clips, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Exported %s (%s)\n", job.OutputPath, humanize.Bytes(uint64(max(job.SizeBytes, 0))))
	return nil
}

func (s *Shell) save(ctx context.Context, args []string) error {
	if s.projects == nil {
		return errors.New("projects are not available")
	}
	st := s.session.Snapshot()
	if s.projectID != "" && len(args) == 0 {
		p, err := s.projects.Overwrite(ctx, s.projectID, st)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %s\n", p.Name)
		return nil
	}
	p, err := s.projects.Save(ctx, strings.Join(args, " "), st)
	if err != nil {
		return err
	}
	s.projectID = p.ID
	fmt.Fprintf(s.out, "Saved %s as %s\n", p.Name, p.ID)
	return nil
}

func (s *Shell) load(ctx context.Context, args []string) error {
	if s.projects == nil {
		return errors.New("projects are not available")
	}
	if len(args) == 0 {
		return usageError("load <project-id>")
	}
	st, err := s.projects.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if err := s.session.Replace(st); err != nil {
		return err
	}
	s.projectID = args[0]
	s.printTimeline()
	return nil
}

func (s *Shell) listProjects(ctx context.Context) error {
	if s.projects == nil {
		return errors.New("projects are not available")
	}
	projects, err := s.projects.List(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(s.out, "No saved projects")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintf(s.out, "%s  %-24s %2d clips  %s  updated %s\n", p.ID, p.Name, p.ClipCount,
			timeline.FormatDuration(p.Duration), humanize.Time(p.UpdatedAt))
	}
	return nil
}

func (s *Shell) printTimeline() {
	var st timeline.State
	var pct int
	s.session.View(func(store *timeline.Store) {
		st = store.Snapshot()
		pct = store.ZoomPercent()
	})
	if len(st.Clips) == 0 {
		fmt.Fprintln(s.out, "Timeline is empty")
	}
	for i, c := range st.Clips {
		marks := ""
		if c.HasTrimMarkers(timeline.DefaultMarkerEpsilon) {
			marks = fmt.Sprintf("  [in %s out %s]", timeline.FormatDuration(c.TrimStart), timeline.FormatDuration(c.TrimEnd))
		}
		cursor := " "
		if c.ID == st.SelectedClipID {
			cursor = "*"
		}
		fmt.Fprintf(s.out, "%s%2d. %-24s %s - %s (%s)%s\n", cursor, i+1, c.Name,
			timeline.FormatDuration(c.StartTime), timeline.FormatDuration(c.EndTime),
			timeline.FormatDuration(c.Duration), marks)
	}
	state := "stopped"
	if st.IsPlaying {
		state = "playing"
	}
	fmt.Fprintf(s.out, "Playhead %s / %s, %s, zoom %d%%\n",
		timeline.FormatDuration(st.CurrentTime), timeline.FormatDuration(st.TotalDuration()),
		state, pct)
	if s.projectID != "" {
		fmt.Fprintf(s.out, "Project %s\n", s.projectID)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Clips are addressed by position (1, 2, ...) or id.")
	fmt.Fprintln(s.out, "")
	fmt.Fprintln(s.out, "  ls | status                 Show the timeline")
	fmt.Fprintln(s.out, "  import <path> [seconds]     Append a video clip")
	fmt.Fprintln(s.out, "  remove <clip>               Remove a clip, leaving a gap")
	fmt.Fprintln(s.out, "  select [<clip>]             Select or deselect a clip")
	fmt.Fprintln(s.out, "  rename <clip> <name>        Rename a clip")
	fmt.Fprintln(s.out, "  trim <clip> <in> <out>      Set trim markers (source seconds)")
	fmt.Fprintln(s.out, "  preview <clip>              Describe what delete would remove")
	fmt.Fprintln(s.out, "  delete <clip>               Propose deleting outside the markers")
	fmt.Fprintln(s.out, "  confirm | cancel            Resolve the pending delete")
	fmt.Fprintln(s.out, "  split [<clip> <offset>]     Split at the playhead or an offset")
	fmt.Fprintln(s.out, "  repack                      Close gaps between clips")
	fmt.Fprintln(s.out, "  clear                       Remove every clip")
	fmt.Fprintln(s.out, "  seek <seconds>              Move the playhead")
	fmt.Fprintln(s.out, "  play | pause                Control playback")
	fmt.Fprintln(s.out, "  tick <source-seconds>       Report a player position")
	fmt.Fprintln(s.out, "  zoom in|out|reset|<level>   Change the zoom level")
	fmt.Fprintln(s.out, "  plan [quality]              Show the export segments")
	fmt.Fprintln(s.out, "  export [dest] [quality]     Render the timeline")
	fmt.Fprintln(s.out, "  save [name]                 Save the timeline as a project")
	fmt.Fprintln(s.out, "  load <project-id>           Load a saved project")
	fmt.Fprintln(s.out, "  projects                    List saved projects")
	fmt.Fprintln(s.out, "  exit                        Leave the shell")
}
