package export

import (
	"fmt"

	"github.com/clipforge/clipforge-agent/internal/timeline"
)

// BuildPlan turns the clip sequence into the ordered list of source ranges
// to render. It uses each clip's committed source window; trim markers that
// were never confirmed are ignored.
func BuildPlan(clips []timeline.Clip, quality Quality) (Plan, error) {
	if len(clips) == 0 {
		return Plan{}, timeline.ErrEmptyTimeline
	}

	segments := make([]Segment, 0, len(clips))
	for _, c := range clips {
		if c.PlayablePath == "" {
			return Plan{}, fmt.Errorf("%w: clip %s has no media path", timeline.ErrInvalidReference, c.ID)
		}
		segments = append(segments, Segment{
			ClipID:     c.ID,
			Name:       c.Name,
			SourcePath: c.PlayablePath,
			RangeStart: c.SourceStart,
			RangeEnd:   c.SourceEnd,
		})
	}
	return Plan{Segments: segments, Quality: quality}, nil
}
