package encoder

import (
	"strconv"

	"github.com/clipforge/clipforge-agent/internal/export"
)

// Params are the libx264 settings for one quality tier.
type Params struct {
	CRF    int
	Preset string
}

// ParamsFor maps a quality tier onto encoder settings. Unknown tiers encode
// as medium.
func ParamsFor(q export.Quality) Params {
	switch q {
	case export.QualityLow:
		return Params{CRF: 28, Preset: "fast"}
	case export.QualityHigh:
		return Params{CRF: 18, Preset: "slow"}
	default:
		return Params{CRF: 23, Preset: "medium"}
	}
}

func (p Params) args() []string {
	return []string{"-c:v", "libx264", "-crf", strconv.Itoa(p.CRF), "-preset", p.Preset}
}
