// Package filter removes near-duplicate, blurry, dark and privacy-sensitive
// frames from the extracted sequence while preserving order.
package filter

import (
	"context"
	"log/slog"
	"os"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"github.com/halverson/homewalk/internal/frame"
)

// FaceCounter reports how many face-like regions an image contains. Frames
// with any face are dropped for privacy before leaving the pipeline.
type FaceCounter interface {
	CountFaces(ctx context.Context, imagePath string) (int, error)
}

// Stats counts dropped frames per rejection category. Exactly one category
// is recorded per dropped frame.
type Stats struct {
	Similar   int `json:"similar"`
	Blurry    int `json:"blurry"`
	Dark      int `json:"dark"`
	Sensitive int `json:"sensitive"`
}

// Total returns the number of dropped frames across all categories.
func (s Stats) Total() int {
	return s.Similar + s.Blurry + s.Dark + s.Sensitive
}

// Config holds the rejection thresholds.
type Config struct {
	// HashDistance is the maximum perceptual-hash distance at which a frame
	// counts as a near duplicate of the last retained frame.
	HashDistance int
	// BlurThreshold is the Laplacian-variance level at or below which a
	// frame counts as blurry.
	BlurThreshold float64
	// DarkThreshold is the mean brightness level (0-255) at or below which
	// a frame counts as dark.
	DarkThreshold float64
	Logger        *slog.Logger
}

// Filter applies the rejection checks in priority order: near duplicate,
// blurry, dark, face-containing.
type Filter struct {
	cfg   Config
	faces FaceCounter
}

// New creates a Filter. faces may be nil, in which case the privacy check
// is skipped.
func New(cfg Config, faces FaceCounter) *Filter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Filter{cfg: cfg, faces: faces}
}

// Run processes frames strictly in order and returns the retained frames,
// with metrics populated, plus deletion statistics. Rejected frame files
// are removed from disk. Unreadable images are skipped silently: omitted
// from the output but not counted in any rejection category.
//
// Near-duplicate suppression compares each frame only against the last
// retained hash, not the full history.
func (f *Filter) Run(ctx context.Context, frames []frame.Frame) ([]frame.Frame, Stats) {
	var (
		retained []frame.Frame
		stats    Stats
		lastHash *goimagehash.ImageHash
	)

	for _, fr := range frames {
		img, err := imaging.Open(fr.Path)
		if err != nil {
			f.cfg.Logger.Debug("skipping unreadable frame", "path", fr.Path, "error", err)
			continue
		}

		hash, err := goimagehash.PerceptionHash(img)
		if err != nil {
			f.cfg.Logger.Debug("skipping unhashable frame", "path", fr.Path, "error", err)
			continue
		}

		if lastHash != nil {
			distance, err := hash.Distance(lastHash)
			if err == nil && distance <= f.cfg.HashDistance {
				f.reject(fr, "similar")
				stats.Similar++
				continue
			}
		}
		// The comparison baseline advances even when the frame is later
		// dropped as blurry, dark or sensitive.
		lastHash = hash

		fr.Metrics = frame.AnalyzeImage(img)

		if fr.Metrics.Sharpness <= f.cfg.BlurThreshold {
			f.reject(fr, "blurry")
			stats.Blurry++
			continue
		}

		if fr.Metrics.Brightness <= f.cfg.DarkThreshold {
			f.reject(fr, "dark")
			stats.Dark++
			continue
		}

		if f.faces != nil {
			count, err := f.faces.CountFaces(ctx, fr.Path)
			if err != nil {
				// Detection capability failure is not a rejection; treat
				// the frame as face-free and keep it.
				f.cfg.Logger.Warn("face detection unavailable", "path", fr.Path, "error", err)
			} else if count > 0 {
				f.reject(fr, "sensitive")
				stats.Sensitive++
				continue
			}
		}

		retained = append(retained, fr)
	}

	return retained, stats
}

func (f *Filter) reject(fr frame.Frame, reason string) {
	f.cfg.Logger.Debug("dropping frame", "index", fr.Index, "reason", reason)
	if err := os.Remove(fr.Path); err != nil {
		f.cfg.Logger.Warn("failed to delete rejected frame", "path", fr.Path, "error", err)
	}
}
