package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// Probe reads container and stream metadata from a media file.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	bin, err := f.lookPath(f.cfg.FFprobePath)
	if err != nil {
		return nil, err
	}

	if f.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.ProbeTimeout)
		defer cancel()
	}

	var out bytes.Buffer
	res := f.run(ctx, &out, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if !res.IsSuccess() {
		return nil, fmt.Errorf("ffprobe exited %d: %s", res.ExitCode, truncate(res.StderrTail, 512))
	}
	return parseProbe(out.Bytes())
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	var r ProbeResult
	if raw.Format.Duration != "" {
		d, err := strconv.ParseFloat(raw.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", raw.Format.Duration, err)
		}
		r.Duration = d
	}
	r.Bitrate, _ = strconv.ParseInt(raw.Format.BitRate, 10, 64)

	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if r.Codec == "" {
				r.Codec = s.CodecName
				r.Width, r.Height = s.Width, s.Height
				r.FrameRate = parseRate(s.AvgFrameRate)
			}
		case "audio":
			if r.AudioCodec == "" {
				r.AudioCodec = s.CodecName
			}
		}
	}
	return &r, nil
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// ProbeDuration returns the media duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	r, err := f.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	if r.Duration <= 0 {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", f.safePath(path))
	}
	return r.Duration, nil
}
