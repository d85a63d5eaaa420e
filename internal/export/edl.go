package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

// DefaultFrameRate is used for EDL timecodes when none is configured.
const DefaultFrameRate = 30.0

// GenerateEDL renders the plan as a CMX3600 edit decision list. Record
// timecodes run contiguously from zero in plan order.
func GenerateEDL(plan Plan, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	for i, seg := range plan.Segments {
		startMs, endMs := secondsToMs(seg.RangeStart), secondsToMs(seg.RangeEnd)
		durationMs := endMs - startMs

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				msToTimecode(startMs, fps), msToTimecode(endMs, fps),
				msToTimecode(recordOffsetMs, fps), msToTimecode(recordOffsetMs+durationMs, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", seg.Name),
			fmt.Sprintf("* MEDIA PATH:  %s", seg.SourcePath),
		)

		recordOffsetMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToMs(s float64) int {
	return int(math.Round(s * 1000))
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

// EDLEncoder writes the plan as an EDL file instead of rendering media.
type EDLEncoder struct {
	FrameRate float64
}

func (e EDLEncoder) Encode(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	began := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, ErrCancelled
	}

	title := req.Title
	if title == "" {
		title = "ClipForge Export"
	}
	content := GenerateEDL(req.Plan, SanitizeName(title, 100), e.FrameRate)
	if err := os.WriteFile(req.Destination, []byte(content), 0o644); err != nil {
		return Result{}, fmt.Errorf("write edl: %w", err)
	}
	if progress != nil {
		progress(100)
	}
	return Result{OutputPath: req.Destination, SizeBytes: int64(len(content)), Elapsed: time.Since(began)}, nil
}
