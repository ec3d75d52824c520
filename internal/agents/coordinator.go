package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/report"
	"github.com/halverson/homewalk/pkg/parallel"
)

// Config bounds the coordinator.
type Config struct {
	// MaxConcurrency caps parallel external calls (floor 1).
	MaxConcurrency int
	// Retries is the number of additional attempts after a failed external
	// call.
	Retries int
	// RetryBaseDelay is the delay before the first retry; subsequent
	// retries wait proportionally longer.
	RetryBaseDelay time.Duration
	Logger         *slog.Logger
}

// Coordinator plans the analysis stages, dispatches independent stages
// concurrently and degrades individual stage failures without aborting the
// run.
type Coordinator struct {
	completer Completer
	router    Completer
	cfg       Config
}

// stageWaves groups the canonical order into dependency layers. Stages in
// the same wave have no data dependency on each other and are dispatched
// concurrently; each wave blocks on the previous one.
var stageWaves = [][]StageName{
	{StageHazard, StageComfort},
	{StageCompliance, StageScoring},
	{StageRecommendation},
	{StageReportWriter},
}

// NewCoordinator creates a Coordinator. router may be nil, in which case
// planning always uses the heuristic.
func NewCoordinator(completer, router Completer, cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &Coordinator{completer: completer, router: router, cfg: cfg}
}

// Run executes the planned stages over the region evidence and returns the
// aggregate outputs, including the draft report. Every stage failure is
// folded into the aggregate with an error annotation; Run itself never
// fails.
func (c *Coordinator) Run(ctx context.Context, regions []evidence.Region, attrs map[string]bool) *Outputs {
	out := &Outputs{StageErrors: make(map[StageName]string)}
	out.Plan, out.PlanSource = PlanStages(ctx, c.router, regions, attrs, c.cfg.Logger)
	c.cfg.Logger.Info("stage plan", "plan", out.Plan, "source", out.PlanSource)

	planned := make(map[StageName]bool, len(out.Plan))
	for _, name := range out.Plan {
		planned[name] = true
	}

	for _, wave := range stageWaves {
		var members []StageName
		for _, name := range wave {
			if !planned[name] {
				continue
			}
			if name == StageCompliance && out.HazardsEmpty() {
				// Nothing to review against guidelines.
				c.cfg.Logger.Debug("skipping compliance stage, no hazards found")
				out.Skipped = append(out.Skipped, name)
				continue
			}
			members = append(members, name)
		}
		if len(members) == 0 {
			continue
		}

		results := parallel.Map(ctx, c.cfg.MaxConcurrency, members, func(ctx context.Context, _ int, name StageName) stageResult {
			return c.runStage(ctx, name, out, regions, attrs)
		})
		for _, r := range results {
			c.assign(out, r)
		}
	}

	return out
}

// stageResult carries one stage's output back to the dispatching wave.
type stageResult struct {
	name StageName
	data any
	err  string
}

func (c *Coordinator) runStage(ctx context.Context, name StageName, out *Outputs, regions []evidence.Region, attrs map[string]bool) stageResult {
	started := time.Now()
	defer func() {
		c.cfg.Logger.Debug("stage finished", "stage", name, "elapsed", time.Since(started))
	}()

	switch name {
	case StageHazard:
		return stageResult{name: name, data: c.identifyHazards(ctx, regions, attrs)}

	case StageComfort:
		prompt := fmt.Sprintf("User groups: %s\n\nRegion evidence JSON:\n%s",
			FormatAttributes(attrs), mustJSON(regions))
		obj, errMsg := c.runObjectStage(ctx, name, comfortSystem, prompt)
		return stageResult{name: name, data: obj, err: errMsg}

	case StageCompliance:
		prompt := fmt.Sprintf("Hazards JSON:\n%s", mustJSON(out.Hazards))
		obj, errMsg := c.runObjectStage(ctx, name, complianceSystem, prompt)
		return stageResult{name: name, data: obj, err: errMsg}

	case StageScoring:
		prompt := fmt.Sprintf("Hazards JSON:\n%s\n\nComfort JSON:\n%s",
			mustJSON(out.Hazards), mustJSON(out.Comfort))
		obj, errMsg := c.runObjectStage(ctx, name, scoringSystem, prompt)
		return stageResult{name: name, data: obj, err: errMsg}

	case StageRecommendation:
		prompt := fmt.Sprintf("User groups: %s\n\nHazards JSON:\n%s\n\nScoring JSON:\n%s\n\nComfort JSON:\n%s",
			FormatAttributes(attrs), mustJSON(out.Hazards), mustJSON(out.Scoring), mustJSON(out.Comfort))
		obj, errMsg := c.runObjectStage(ctx, name, recommendationSystem, prompt)
		return stageResult{name: name, data: obj, err: errMsg}

	case StageReportWriter:
		draft, err := c.WriteReport(ctx, out, regions, attrs, "")
		if err != nil {
			return stageResult{name: name, data: degradedDraft(err), err: err.Error()}
		}
		return stageResult{name: name, data: draft}

	default:
		return stageResult{name: name, err: fmt.Sprintf("unknown stage %q", name)}
	}
}

func (c *Coordinator) assign(out *Outputs, r stageResult) {
	if r.err != "" {
		out.StageErrors[r.name] = r.err
		c.cfg.Logger.Warn("stage degraded", "stage", r.name, "error", r.err)
	}
	switch r.name {
	case StageHazard:
		out.Hazards, _ = r.data.([]RegionHazards)
	case StageComfort:
		out.Comfort, _ = r.data.(map[string]any)
	case StageCompliance:
		out.Compliance, _ = r.data.(map[string]any)
	case StageScoring:
		out.Scoring, _ = r.data.(map[string]any)
	case StageRecommendation:
		out.Recommendations, _ = r.data.(map[string]any)
	case StageReportWriter:
		out.Draft, _ = r.data.(report.Draft)
	}
}

// invoke calls the completion capability with a counted retry loop and
// increasing delay between attempts. After exhaustion the last error
// surfaces so the caller can degrade.
func (c *Coordinator) invoke(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.cfg.RetryBaseDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.completer.Complete(ctx, system, user)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.cfg.Logger.Debug("completion attempt failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", c.cfg.Retries+1, lastErr)
}

// degradedDraft is the well-defined substitute for a failed report-writing
// stage.
func degradedDraft(err error) report.Draft {
	return report.Draft{
		"regions": []any{},
		"error":   err.Error(),
	}
}
