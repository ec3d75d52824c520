package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halverson/homewalk/internal/agents"
	"github.com/halverson/homewalk/internal/detect"
	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/filter"
	"github.com/halverson/homewalk/internal/frame"
	"github.com/halverson/homewalk/internal/report"
	"github.com/halverson/homewalk/internal/segment"
	"github.com/halverson/homewalk/internal/selector"
	"github.com/halverson/homewalk/internal/workflow"
)

// stubExtractor bypasses ffmpeg and serves pre-written frame files.
type stubExtractor struct {
	frames []frame.Frame
	err    error
}

func (s stubExtractor) Extract(_ context.Context, _, _ string) ([]frame.Frame, error) {
	return s.frames, s.err
}

type stubDetector struct {
	detections []detect.Detection
}

func (s stubDetector) DetectObjects(_ context.Context, _ string) ([]detect.Detection, error) {
	return s.detections, nil
}

type stubDescriber struct {
	text string
	err  error
}

func (s stubDescriber) DescribeImage(_ context.Context, _, _ string) (string, error) {
	return s.text, s.err
}

type stubCompleter struct {
	fn func(system, user string) (string, error)
}

func (s stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	return s.fn(system, user)
}

// validReportJSON passes every structural check of the report validator.
const validReportJSON = `{
	"meta": {"generated": "2026-01-01"},
	"regions": [{
		"regionName": ["Kitchen"],
		"potentialHazards": ["sharp counter corner"],
		"colorAndLightingEvaluation": ["warm, even lighting"],
		"suggestions": ["add corner guards"],
		"scores": [4.0, 3.5, 4.0, 4.5, 4.0]
	}],
	"scores": {"overall": 4.2, "dimensions": {"personal_safety": 4.0}},
	"top_risks": ["sharp counter corner"],
	"recommendations": {"actions": ["add corner guards"]},
	"comfort": {"lighting": "adequate"},
	"compliance": {"notes": ["smoke alarm present"]},
	"action_plan": ["week 1: kitchen"],
	"limitations": ["garage not shown"]
}`

func healthyCompleter() stubCompleter {
	return stubCompleter{fn: func(system, _ string) (string, error) {
		switch {
		case strings.Contains(system, "identify home safety hazards"):
			return `{"general_hazards": ["sharp counter corner"], "specific_hazards": []}`, nil
		case strings.Contains(system, "compose the final"):
			return validReportJSON, nil
		default:
			return `{"summary": "ok"}`, nil
		}
	}}
}

// sharpFrame writes a bright checkerboard the quality filter will keep.
func sharpFrame(t *testing.T, dir string, index int) frame.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			if ((x/16)+(y/16))%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("frame_%05d.jpg", index))
	require.NoError(t, imaging.Save(img, path))
	return frame.Frame{Index: index, Path: path}
}

func newOrchestrator(t *testing.T, extractor workflow.FrameExtractor, completer agents.Completer) *workflow.Orchestrator {
	t.Helper()
	return workflow.New(workflow.Deps{
		Extractor: extractor,
		Filter: filter.New(filter.Config{
			HashDistance:  12,
			BlurThreshold: 50,
			DarkThreshold: 50,
		}, nil),
		Segmenter: segment.New(0.70, nil),
		Selector: selector.New(selector.Config{
			MaxFrames:               15,
			MaxPerRoom:              3,
			MaxCandidatesPerSegment: 3,
			ShortSegmentLen:         3,
			ObjectYieldCap:          6,
		}, stubDetector{detections: []detect.Detection{{Label: "oven", Confidence: 0.9}}}),
		Grouper:   &evidence.Grouper{MaxPerRoom: 3, CharBudget: 600},
		Describer: stubDescriber{text: "a tidy kitchen with a gas stove"},
		Coordinator: agents.NewCoordinator(completer, nil, agents.Config{
			MaxConcurrency: 2,
			RetryBaseDelay: time.Millisecond,
		}),
		Repair:         report.NewRepairLoop(3, nil),
		MaxConcurrency: 2,
	})
}

func traceSteps(state *workflow.State) []string {
	var steps []string
	for _, e := range state.TraceLog() {
		steps = append(steps, e.Step)
	}
	return steps
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	extractor := stubExtractor{frames: []frame.Frame{sharpFrame(t, dir, 0)}}
	o := newOrchestrator(t, extractor, healthyCompleter())

	state := workflow.NewState("/videos/walk.mp4", nil)
	require.NoError(t, o.Run(context.Background(), state, dir))

	assert.Empty(t, state.Warning, "a healthy run ends without a warning")
	require.Len(t, state.Frames, 1)
	require.Len(t, state.Segments, 1)
	require.Len(t, state.Representative, 1)
	require.Len(t, state.Regions, 1)
	assert.Equal(t, "Kitchen", state.Regions[0].Label, "oven detections infer a kitchen")
	assert.Contains(t, state.Regions[0].Description, "tidy kitchen")

	require.NotNil(t, state.Analysis)
	assert.NotEmpty(t, state.Analysis.Hazards)
	require.NotNil(t, state.Report)
	assert.True(t, state.ReportValid, "the stubbed report passes validation")
	assert.Equal(t, 1, state.Iterations)

	steps := traceSteps(state)
	assert.Contains(t, steps, "extract_frames_start")
	assert.Contains(t, steps, "group_regions_complete")
	assert.Contains(t, steps, "agent_pipeline_complete")
	assert.Contains(t, steps, "validate_report_complete")
}

func TestRun_WarnsWhenNoFramesExtracted(t *testing.T) {
	o := newOrchestrator(t, stubExtractor{}, healthyCompleter())

	state := workflow.NewState("/videos/walk.mp4", nil)
	require.NoError(t, o.Run(context.Background(), state, t.TempDir()),
		"an empty video is a degraded result, not an error")

	assert.Equal(t, "no frames could be extracted from the video", state.Warning)
	assert.Nil(t, state.Report, "analysis is skipped after an early exit")
	assert.Contains(t, traceSteps(state), "workflow_early_exit")
}

func TestRun_WarnsWhenAllFramesFiltered(t *testing.T) {
	dir := t.TempDir()
	// A featureless dark frame fails the blur check and is deleted.
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	path := filepath.Join(dir, "frame_00000.jpg")
	require.NoError(t, imaging.Save(img, path))

	extractor := stubExtractor{frames: []frame.Frame{{Index: 0, Path: path}}}
	o := newOrchestrator(t, extractor, healthyCompleter())

	state := workflow.NewState("/videos/walk.mp4", nil)
	require.NoError(t, o.Run(context.Background(), state, dir))

	assert.Equal(t, "all extracted frames were filtered out", state.Warning)
	assert.NotZero(t, state.FilterStats.Total(), "the filter statistics survive the early exit")
}

func TestRun_ExtractionFailureIsAnError(t *testing.T) {
	o := newOrchestrator(t, stubExtractor{err: errors.New("codec not supported")}, healthyCompleter())

	state := workflow.NewState("/videos/walk.mp4", nil)
	err := o.Run(context.Background(), state, t.TempDir())

	require.Error(t, err, "an unreadable video is a hard failure")
	assert.Contains(t, err.Error(), "failed to extract frames")
}

func TestRun_FailedDescriptionDegrades(t *testing.T) {
	dir := t.TempDir()
	extractor := stubExtractor{frames: []frame.Frame{sharpFrame(t, dir, 0)}}
	o := workflow.New(workflow.Deps{
		Extractor: extractor,
		Filter:    filter.New(filter.Config{HashDistance: 12, BlurThreshold: 50, DarkThreshold: 50}, nil),
		Segmenter: segment.New(0.70, nil),
		Selector: selector.New(selector.Config{
			MaxFrames: 15, MaxPerRoom: 3, MaxCandidatesPerSegment: 3, ShortSegmentLen: 3,
		}, nil),
		Grouper:   &evidence.Grouper{MaxPerRoom: 3, CharBudget: 600},
		Describer: stubDescriber{err: errors.New("vision model offline")},
		Coordinator: agents.NewCoordinator(healthyCompleter(), nil, agents.Config{
			MaxConcurrency: 2,
			RetryBaseDelay: time.Millisecond,
		}),
		Repair:         report.NewRepairLoop(3, nil),
		MaxConcurrency: 2,
	})

	state := workflow.NewState("/videos/walk.mp4", nil)
	require.NoError(t, o.Run(context.Background(), state, dir))

	require.Len(t, state.Regions, 1, "a failed description never drops the region")
	assert.Empty(t, state.Regions[0].Description)
	assert.Empty(t, state.Warning)
}

func TestRun_RepairLoopRecoversInvalidDraft(t *testing.T) {
	dir := t.TempDir()
	extractor := stubExtractor{frames: []frame.Frame{sharpFrame(t, dir, 0)}}

	// The first report omits the scores key; the regeneration carries
	// repair instructions and produces a valid report.
	reportCalls := 0
	completer := stubCompleter{fn: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "identify home safety hazards"):
			return `{"general_hazards": ["sharp counter corner"], "specific_hazards": []}`, nil
		case strings.Contains(system, "compose the final"):
			reportCalls++
			if reportCalls == 1 {
				return `{"regions": [{"regionName": ["Kitchen"], "potentialHazards": ["x"],
					"colorAndLightingEvaluation": ["y"], "suggestions": ["z"],
					"scores": [4, 4, 4, 4, 4]}],
					"meta": {"v": 1}, "top_risks": ["x"],
					"recommendations": {"actions": ["z"]}, "comfort": {"c": 1},
					"compliance": {"c": 1}, "action_plan": ["p"], "limitations": ["l"]}`, nil
			}
			assert.Contains(t, user, "validation errors", "regeneration carries repair instructions")
			return validReportJSON, nil
		default:
			return `{"summary": "ok"}`, nil
		}
	}}

	o := newOrchestrator(t, extractor, completer)
	state := workflow.NewState("/videos/walk.mp4", nil)
	require.NoError(t, o.Run(context.Background(), state, dir))

	assert.True(t, state.ReportValid)
	assert.Equal(t, 2, state.Iterations, "one repair iteration was needed")
	assert.Equal(t, 2, reportCalls)
}
