// Package extract samples a video into an ordered sequence of still JPEG
// frames using ffprobe/ffmpeg.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/halverson/homewalk/internal/frame"
)

// fallbackFPS is assumed when the source frame rate cannot be probed.
const fallbackFPS = 30.0

// Extractor writes every strided frame of a video to an output directory
// with strictly increasing sequential names.
type Extractor struct {
	// SampleRate is the target sampling rate in frames per second.
	SampleRate float64
	Logger     *slog.Logger
}

// New returns an Extractor with the given sampling rate. A nil logger falls
// back to slog.Default().
func New(sampleRate float64, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if sampleRate <= 0 {
		sampleRate = 1
	}
	return &Extractor{SampleRate: sampleRate, Logger: logger}
}

// Extract samples videoPath into outDir and returns the ordered frame list.
// A zero-frame video is not an error; the empty list is a valid result that
// downstream stages must handle.
func (e *Extractor) Extract(ctx context.Context, videoPath, outDir string) ([]frame.Frame, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file is not readable at '%s': %w", videoPath, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %w", outDir, err)
	}

	fps := e.probeFPS(ctx, videoPath)
	stride := strideFor(fps, e.SampleRate)

	e.Logger.Debug("extracting frames", "video", videoPath, "fps", fps, "stride", stride)

	pattern := filepath.Join(outDir, "frame_%05d.jpg")
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", stride),
		"-vsync", "vfr",
		"-q:v", "2",
		pattern,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for '%s': %w\noutput: %s", videoPath, err, string(output))
	}

	return listFrames(outDir)
}

// strideFor converts the source frame rate and target sampling rate into
// the keep-every-nth stride, rounded to nearest and floored at 1.
func strideFor(fps, sampleRate float64) int {
	stride := int(fps/sampleRate + 0.5)
	if stride < 1 {
		stride = 1
	}
	return stride
}

// probeFPS reads the source frame rate via ffprobe. Probe failures fall back
// to a fixed rate rather than aborting extraction.
func (e *Extractor) probeFPS(ctx context.Context, videoPath string) float64 {
	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "csv=p=0",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		e.Logger.Warn("ffprobe failed, assuming default frame rate", "video", videoPath, "error", err)
		return fallbackFPS
	}
	fps, ok := parseRate(strings.TrimSpace(string(out)))
	if !ok {
		e.Logger.Warn("unparseable frame rate, assuming default", "value", strings.TrimSpace(string(out)))
		return fallbackFPS
	}
	return fps
}

// parseRate parses an ffprobe rational rate such as "30000/1001" or "25/1".
func parseRate(s string) (float64, bool) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	if !found {
		return n, true
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0, false
	}
	return n / d, true
}

// listFrames returns the extracted JPEG frames of dir in name order, indexed
// sequentially from zero.
func listFrames(dir string) ([]frame.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory '%s': %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	frames := make([]frame.Frame, 0, len(names))
	for i, name := range names {
		frames = append(frames, frame.Frame{Index: i, Path: filepath.Join(dir, name)})
	}
	return frames, nil
}
