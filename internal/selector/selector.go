// Package selector scores candidate frames per segment, infers a coarse
// room type from detected objects, and picks a bounded, room-balanced set
// of representative frames.
package selector

import (
	"context"
	"log/slog"
	"sort"

	"github.com/halverson/homewalk/internal/detect"
	"github.com/halverson/homewalk/internal/frame"
	"github.com/halverson/homewalk/internal/segment"
)

// Composite score weights.
const (
	weightSharpness   = 0.35
	weightBrightness  = 0.25
	weightObjectYield = 0.25
	weightEdgeDensity = 0.15
)

// ObjectDetector is the detection capability consumed during scoring.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, imagePath string) ([]detect.Detection, error)
}

// Candidate is a sampled frame with its composite score, detections and
// inferred room. Candidates exist only during selection.
type Candidate struct {
	Frame        frame.Frame
	SegmentIndex int
	Score        float64
	Labels       []string
	Detections   []detect.Detection
	Room         string
}

// Config bounds the selection.
type Config struct {
	// MaxFrames is the total representative-image budget.
	MaxFrames int
	// MaxPerRoom caps how many candidates one room bucket may contribute.
	MaxPerRoom int
	// MaxCandidatesPerSegment caps sampling within one segment.
	MaxCandidatesPerSegment int
	// ShortSegmentLen is the segment length below which only one frame is
	// sampled.
	ShortSegmentLen int
	// ObjectYieldCap is the distinct-label count at which the object-yield
	// score term saturates.
	ObjectYieldCap int
	Logger         *slog.Logger
}

// Selector selects representative frames under the configured budget.
type Selector struct {
	cfg      Config
	detector ObjectDetector
}

// New creates a Selector. detector may be nil, in which case candidates
// score zero object yield and resolve to the Unknown room.
func New(cfg Config, detector ObjectDetector) *Selector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ObjectYieldCap < 1 {
		cfg.ObjectYieldCap = 6
	}
	return &Selector{cfg: cfg, detector: detector}
}

// Select samples and scores candidates per segment, buckets them by room
// and applies the frame budget. The result is ordered by original segment
// order, ties broken by descending score.
func (s *Selector) Select(ctx context.Context, segments []segment.Segment) []Candidate {
	var candidates []Candidate
	for segIdx, seg := range segments {
		for _, fr := range sampleFrames(seg.Frames, s.cfg.MaxCandidatesPerSegment, s.cfg.ShortSegmentLen) {
			candidates = append(candidates, s.score(ctx, fr, segIdx))
		}
	}

	selected := s.applyBudget(candidates)

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].SegmentIndex != selected[j].SegmentIndex {
			return selected[i].SegmentIndex < selected[j].SegmentIndex
		}
		return selected[i].Score > selected[j].Score
	})
	return selected
}

// sampleFrames picks up to max evenly spaced frames from a segment. A
// segment shorter than shortLen contributes only its middle frame.
func sampleFrames(frames []frame.Frame, max, shortLen int) []frame.Frame {
	if len(frames) == 0 {
		return nil
	}
	if max < 1 {
		max = 1
	}
	if len(frames) < shortLen {
		return []frame.Frame{frames[len(frames)/2]}
	}
	n := max
	if n > len(frames) {
		n = len(frames)
	}
	if n == 1 {
		return []frame.Frame{frames[len(frames)/2]}
	}
	sampled := make([]frame.Frame, 0, n)
	for i := 0; i < n; i++ {
		pos := i * (len(frames) - 1) / (n - 1)
		sampled = append(sampled, frames[pos])
	}
	return sampled
}

// score computes the composite candidate score and infers its room. A
// failing detection call degrades to zero object yield instead of aborting
// the batch.
func (s *Selector) score(ctx context.Context, fr frame.Frame, segIdx int) Candidate {
	c := Candidate{Frame: fr, SegmentIndex: segIdx, Room: RoomUnknown}

	if s.detector != nil {
		detections, err := s.detector.DetectObjects(ctx, fr.Path)
		if err != nil {
			s.cfg.Logger.Warn("object detection failed for candidate", "path", fr.Path, "error", err)
		} else {
			c.Detections = detections
			c.Labels = detect.Labels(detections)
			c.Room = inferRoom(c.Labels)
		}
	}

	yield := float64(len(c.Labels)) / float64(s.cfg.ObjectYieldCap)
	if yield > 1 {
		yield = 1
	}

	m := fr.Metrics
	c.Score = weightSharpness*m.SharpnessNorm() +
		weightBrightness*m.BrightnessBalance() +
		weightObjectYield*yield +
		weightEdgeDensity*m.EdgeDensity
	return c
}

// applyBudget buckets candidates by room and enforces MaxFrames and
// MaxPerRoom. When even one-per-room exceeds the budget, the essential set
// is trimmed by room priority; otherwise leftover budget is filled with the
// next-highest-scoring extras across all buckets regardless of room.
func (s *Selector) applyBudget(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	buckets := make(map[string][]Candidate)
	var roomOrder []string
	for _, c := range candidates {
		if _, ok := buckets[c.Room]; !ok {
			roomOrder = append(roomOrder, c.Room)
		}
		buckets[c.Room] = append(buckets[c.Room], c)
	}
	for room := range buckets {
		b := buckets[room]
		sort.SliceStable(b, func(i, j int) bool { return b[i].Score > b[j].Score })
		if len(b) > s.cfg.MaxPerRoom {
			b = b[:s.cfg.MaxPerRoom]
		}
		buckets[room] = b
	}

	total := 0
	for _, b := range buckets {
		total += len(b)
	}
	if total <= s.cfg.MaxFrames {
		var selected []Candidate
		for _, room := range roomOrder {
			selected = append(selected, buckets[room]...)
		}
		return selected
	}

	// Essential set: the top candidate of every room bucket.
	essentials := make([]Candidate, 0, len(roomOrder))
	var extras []Candidate
	for _, room := range roomOrder {
		b := buckets[room]
		essentials = append(essentials, b[0])
		extras = append(extras, b[1:]...)
	}

	if len(essentials) > s.cfg.MaxFrames {
		sort.SliceStable(essentials, func(i, j int) bool {
			return priorityRank(essentials[i].Room) < priorityRank(essentials[j].Room)
		})
		s.cfg.Logger.Debug("trimming essential set by room priority",
			"essentials", len(essentials), "budget", s.cfg.MaxFrames)
		return essentials[:s.cfg.MaxFrames]
	}

	sort.SliceStable(extras, func(i, j int) bool { return extras[i].Score > extras[j].Score })
	remaining := s.cfg.MaxFrames - len(essentials)
	if remaining > len(extras) {
		remaining = len(extras)
	}
	return append(essentials, extras[:remaining]...)
}
