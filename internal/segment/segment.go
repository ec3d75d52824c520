// Package segment splits the filtered frame sequence into contiguous runs
// using visual-similarity discontinuities as a proxy for room changes.
package segment

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/halverson/homewalk/internal/frame"
)

// Signature geometry: frames are downscaled and binned into a 2D
// hue x saturation color distribution.
const (
	signatureSize = 64
	hueBins       = 16
	satBins       = 8
)

// Segment is an ordered, contiguous run of retained frames. Segments
// partition the filtered sequence exactly: no gaps, no overlaps.
type Segment struct {
	Frames []frame.Frame
}

// Segmenter starts a new segment whenever the color-distribution
// correlation between consecutive frames drops below Threshold.
type Segmenter struct {
	// Threshold is the minimum correlation for two consecutive frames to
	// belong to the same segment.
	Threshold float64
	Logger    *slog.Logger
}

// New returns a Segmenter with the given similarity threshold.
func New(threshold float64, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{Threshold: threshold, Logger: logger}
}

// Split partitions frames into segments. Concatenating the returned
// segments in order reproduces the input exactly. A frame whose signature
// cannot be computed extends the current segment rather than breaking the
// partition.
func (s *Segmenter) Split(frames []frame.Frame) []Segment {
	if len(frames) == 0 {
		return nil
	}

	segments := []Segment{{Frames: []frame.Frame{frames[0]}}}
	prev := s.signature(frames[0].Path)

	for _, fr := range frames[1:] {
		sig := s.signature(fr.Path)
		boundary := false
		if sig != nil && prev != nil {
			corr := correlation(prev, sig)
			boundary = corr < s.Threshold
			if boundary {
				s.Logger.Debug("segment boundary", "index", fr.Index, "correlation", corr)
			}
		}
		if sig != nil {
			prev = sig
		}

		if boundary {
			segments = append(segments, Segment{Frames: []frame.Frame{fr}})
		} else {
			last := &segments[len(segments)-1]
			last.Frames = append(last.Frames, fr)
		}
	}

	return segments
}

// signature computes the normalized hue x saturation histogram of the frame,
// or nil when the image cannot be read.
func (s *Segmenter) signature(path string) []float64 {
	img, err := imaging.Open(path)
	if err != nil {
		s.Logger.Debug("signature skipped for unreadable frame", "path", path, "error", err)
		return nil
	}

	small := imaging.Resize(img, signatureSize, signatureSize, imaging.Box)
	hist := make([]float64, hueBins*satBins)
	b := small.Bounds()
	total := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := small.NRGBAAt(x, y)
			h, sat := hueSat(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
			hb := int(h / 360 * hueBins)
			if hb >= hueBins {
				hb = hueBins - 1
			}
			sb := int(sat * satBins)
			if sb >= satBins {
				sb = satBins - 1
			}
			hist[hb*satBins+sb]++
			total++
		}
	}
	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	return hist
}

// hueSat converts RGB in [0,1] to hue (degrees, [0,360)) and saturation.
func hueSat(r, g, b float64) (float64, float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case max == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var sat float64
	if max > 0 {
		sat = delta / max
	}
	return h, sat
}

// correlation is the Pearson correlation of two equal-length signatures,
// bounded to [-1,1]. Degenerate (constant) signatures correlate at 1 with
// each other and 0 with anything else.
func correlation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		if varA == varB {
			return 1
		}
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// Start returns the original index of the segment's first frame, or -1
// for an empty segment.
func (seg Segment) Start() int {
	if len(seg.Frames) == 0 {
		return -1
	}
	return seg.Frames[0].Index
}

// End returns the original index of the segment's last frame, or -1 for
// an empty segment.
func (seg Segment) End() int {
	if len(seg.Frames) == 0 {
		return -1
	}
	return seg.Frames[len(seg.Frames)-1].Index
}

// String describes a segment for trace output.
func (seg Segment) String() string {
	if len(seg.Frames) == 0 {
		return "segment[empty]"
	}
	return fmt.Sprintf("segment[%d..%d]", seg.Start(), seg.End())
}
