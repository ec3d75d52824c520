package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/halverson/homewalk/internal/agents"
	"github.com/halverson/homewalk/internal/detect"
	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/filter"
	"github.com/halverson/homewalk/internal/frame"
	"github.com/halverson/homewalk/internal/report"
	"github.com/halverson/homewalk/internal/segment"
	"github.com/halverson/homewalk/internal/selector"
	"github.com/halverson/homewalk/pkg/parallel"
)

// FrameExtractor samples a video into ordered still frames.
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath, outDir string) ([]frame.Frame, error)
}

// Describer produces a textual description of a single image.
type Describer interface {
	DescribeImage(ctx context.Context, imagePath, instructions string) (string, error)
}

const describeInstructions = "Describe this room in detail. Note the " +
	"furnishings, lighting conditions, and any visible hazards or " +
	"safety concerns."

// ==== Orchestrator ====

// Orchestrator runs the curation steps in order, records trace events on
// the state, and degrades to a warning instead of failing when the video
// yields nothing usable.
type Orchestrator struct {
	extractor   FrameExtractor
	filter      *filter.Filter
	segmenter   *segment.Segmenter
	selector    *selector.Selector
	grouper     *evidence.Grouper
	describer   Describer
	coordinator *agents.Coordinator
	repair      *report.RepairLoop

	annotate       bool
	maxConcurrency int
	logger         *slog.Logger
}

// Deps bundles the stage implementations wired into an Orchestrator.
type Deps struct {
	Extractor   FrameExtractor
	Filter      *filter.Filter
	Segmenter   *segment.Segmenter
	Selector    *selector.Selector
	Grouper     *evidence.Grouper
	Describer   Describer
	Coordinator *agents.Coordinator
	Repair      *report.RepairLoop

	// Annotate draws detection boxes onto the selected frames in place.
	Annotate       bool
	MaxConcurrency int
	Logger         *slog.Logger
}

func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxConcurrency < 1 {
		deps.MaxConcurrency = 1
	}
	return &Orchestrator{
		extractor:      deps.Extractor,
		filter:         deps.Filter,
		segmenter:      deps.Segmenter,
		selector:       deps.Selector,
		grouper:        deps.Grouper,
		describer:      deps.Describer,
		coordinator:    deps.Coordinator,
		repair:         deps.Repair,
		annotate:       deps.Annotate,
		maxConcurrency: deps.MaxConcurrency,
		logger:         deps.Logger,
	}
}

// Run executes the full pipeline: curation followed by analysis. A
// curation warning skips the analysis half.
func (o *Orchestrator) Run(ctx context.Context, state *State, workDir string) error {
	if err := o.Curate(ctx, state, workDir); err != nil {
		return err
	}
	if state.Warning != "" {
		return nil
	}
	o.Analyze(ctx, state)
	return nil
}

// Curate runs extraction through region grouping. It returns an error
// only for hard failures such as an unreadable video; an empty yield at
// any step sets state.Warning and returns nil.
func (o *Orchestrator) Curate(ctx context.Context, state *State, workDir string) error {
	state.Trace("extract_frames_start", map[string]any{"video": state.VideoPath})
	frames, err := o.extractor.Extract(ctx, state.VideoPath, filepath.Join(workDir, "frames"))
	if err != nil {
		return fmt.Errorf("failed to extract frames: %w", err)
	}
	state.Trace("extract_frames_complete", map[string]any{"count": len(frames)})
	if len(frames) == 0 {
		return o.earlyExit(state, "no frames could be extracted from the video")
	}

	state.Trace("filter_frames_start", map[string]any{"count": len(frames)})
	kept, stats := o.filter.Run(ctx, frames)
	state.Frames = kept
	state.FilterStats = stats
	state.Trace("filter_frames_complete", map[string]any{
		"kept":    len(kept),
		"removed": stats.Total(),
		"stats":   stats,
	})
	if len(kept) == 0 {
		return o.earlyExit(state, "all extracted frames were filtered out")
	}

	state.Trace("segment_scenes_start", map[string]any{"frames": len(kept)})
	state.Segments = o.segmenter.Split(kept)
	state.Trace("segment_scenes_complete", map[string]any{"segments": len(state.Segments)})

	state.Trace("select_representatives_start", map[string]any{"segments": len(state.Segments)})
	state.Representative = o.selector.Select(ctx, state.Segments)
	state.Trace("select_representatives_complete", map[string]any{"selected": len(state.Representative)})
	if len(state.Representative) == 0 {
		return o.earlyExit(state, "no representative frames could be selected")
	}

	if o.annotate {
		o.annotateFrames(state)
	}

	descriptions := o.describeFrames(ctx, state)

	state.Trace("group_regions_start", map[string]any{"frames": len(state.Representative)})
	state.Regions = o.grouper.Group(o.frameEvidence(state, descriptions))
	state.Trace("group_regions_complete", map[string]any{"regions": len(state.Regions)})
	return nil
}

// Analyze runs the agent coordinator over the grouped regions and then
// the validate-repair loop over the draft report.
func (o *Orchestrator) Analyze(ctx context.Context, state *State) {
	state.Trace("agent_pipeline_start", map[string]any{"regions": len(state.Regions)})
	outputs := o.coordinator.Run(ctx, state.Regions, state.UserAttributes)
	state.Analysis = outputs
	state.Trace("agent_pipeline_complete", map[string]any{
		"plan":         outputs.Plan,
		"plan_source":  outputs.PlanSource,
		"skipped":      outputs.Skipped,
		"stage_errors": outputs.StageErrors,
	})

	state.Trace("validate_report_start", nil)
	outcome := o.repair.Run(ctx, outputs.Draft, func(ctx context.Context, repairInstructions string) (report.Draft, error) {
		return o.coordinator.WriteReport(ctx, outputs, state.Regions, state.UserAttributes, repairInstructions)
	})
	state.Report = outcome.Report
	state.ReportValid = outcome.Valid
	state.Iterations = outcome.Iterations
	state.Validation = &outcome.Validation
	state.Trace("validate_report_complete", map[string]any{
		"valid":      outcome.Valid,
		"iterations": outcome.Iterations,
		"errors":     len(outcome.Validation.Errors),
	})
}

func (o *Orchestrator) earlyExit(state *State, reason string) error {
	state.Warning = reason
	o.logger.Warn("pipeline ended early", "run_id", state.RunID, "reason", reason)
	state.Trace("workflow_early_exit", map[string]any{"reason": reason})
	return nil
}

// annotateFrames draws detection boxes onto the selected frames. Failures
// leave the frame unannotated.
func (o *Orchestrator) annotateFrames(state *State) {
	state.Trace("annotate_frames_start", map[string]any{"count": len(state.Representative)})
	annotated := 0
	for _, cand := range state.Representative {
		if len(cand.Detections) == 0 {
			continue
		}
		if err := detect.Annotate(cand.Frame.Path, cand.Detections); err != nil {
			o.logger.Warn("failed to annotate frame", "path", cand.Frame.Path, "error", err)
			continue
		}
		annotated++
	}
	state.Trace("annotate_frames_complete", map[string]any{"annotated": annotated})
}

// describeFrames fans out one vision call per representative frame. A
// failed call leaves that frame without a description.
func (o *Orchestrator) describeFrames(ctx context.Context, state *State) []string {
	if o.describer == nil {
		return make([]string, len(state.Representative))
	}
	state.Trace("describe_frames_start", map[string]any{"count": len(state.Representative)})
	descriptions := parallel.Map(ctx, o.maxConcurrency, state.Representative,
		func(ctx context.Context, _ int, cand selector.Candidate) string {
			desc, err := o.describer.DescribeImage(ctx, cand.Frame.Path, describeInstructions)
			if err != nil {
				o.logger.Warn("failed to describe frame", "path", cand.Frame.Path, "error", err)
				return ""
			}
			return desc
		})
	described := 0
	for _, d := range descriptions {
		if d != "" {
			described++
		}
	}
	state.Trace("describe_frames_complete", map[string]any{"described": described})
	return descriptions
}

func (o *Orchestrator) frameEvidence(state *State, descriptions []string) []evidence.FrameEvidence {
	items := make([]evidence.FrameEvidence, 0, len(state.Representative))
	for i, cand := range state.Representative {
		desc := ""
		if i < len(descriptions) {
			desc = descriptions[i]
		}
		items = append(items, evidence.FrameEvidence{
			Index:       cand.Frame.Index,
			Path:        cand.Frame.Path,
			Room:        cand.Room,
			Description: desc,
			Objects:     cand.Labels,
		})
	}
	return items
}
