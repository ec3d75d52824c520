package agents

import (
	"context"
	"fmt"

	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/llm"
	"github.com/halverson/homewalk/internal/report"
	"github.com/halverson/homewalk/pkg/parallel"
)

// Stage system instructions. Wording is deliberately short; the capability
// behind the Completer owns the real analytical guidance.
const (
	hazardSystem = "You identify home safety hazards in one room from its description and detected objects. " +
		"Consider general risks, risks specific to the listed user groups, and environmental risks. " +
		"Respond with JSON only: {\"general_hazards\": [\"...\"], \"specific_hazards\": [\"...\"]}."

	comfortSystem = "You assess comfort, lighting, noise and air quality across the provided rooms. " +
		"Respond with a JSON object summarizing comfort findings per room."

	complianceSystem = "You review identified hazards against common residential safety guidelines. " +
		"Respond with a JSON object of compliance notes and a checklist."

	scoringSystem = "You score home safety dimensions from the hazards and comfort findings. " +
		"Respond with a JSON object containing per-dimension scores in [0,5] and top risks."

	recommendationSystem = "You produce prioritized safety recommendations from hazards, scores and comfort findings. " +
		"Respond with a JSON object containing an \"actions\" list."

	reportWriterSystem = "You compose the final home safety report as a single JSON object. " +
		"Required top-level keys: meta, regions, scores, top_risks, recommendations, comfort, compliance, action_plan, limitations. " +
		"Each region needs regionName, potentialHazards, colorAndLightingEvaluation, suggestions (all lists) and scores " +
		"(exactly five numbers in [0,5]). scores needs overall and dimensions; recommendations needs a non-empty actions list. " +
		"Respond with JSON only."
)

// identifyHazards fans hazard analysis out per region on the worker pool.
// Each region owns its result slot, so the output order matches the region
// order regardless of completion order, and one failing region degrades to
// an annotated empty result instead of aborting the batch.
func (c *Coordinator) identifyHazards(ctx context.Context, regions []evidence.Region, attrs map[string]bool) []RegionHazards {
	attributesDesc := FormatAttributes(attrs)
	return parallel.Map(ctx, c.cfg.MaxConcurrency, regions, func(ctx context.Context, _ int, region evidence.Region) RegionHazards {
		prompt := fmt.Sprintf("User groups: %s\n\nRegion %q objects: %s\n\nDescription:\n%s",
			attributesDesc, region.Label, mustJSON(region.Objects), region.Description)

		text, err := c.invoke(ctx, hazardSystem, prompt)
		if err != nil {
			return RegionHazards{RegionName: region.Label, Error: err.Error()}
		}
		return parseRegionHazards(region.Label, text)
	})
}

// parseRegionHazards extracts hazard lists from stage text. A
// bare JSON array is treated as general hazards; anything unparseable is
// "no data".
func parseRegionHazards(regionName, text string) RegionHazards {
	h := RegionHazards{RegionName: regionName}
	parsed, ok := llm.ExtractJSON(text)
	if !ok {
		return h
	}
	switch v := parsed.(type) {
	case map[string]any:
		h.GeneralHazards = stringList(v["general_hazards"])
		h.SpecificHazards = stringList(v["specific_hazards"])
	case []any:
		h.GeneralHazards = stringList(v)
	}
	return h
}

// runObjectStage invokes one JSON-object stage with retries. On failure it
// substitutes the well-defined degraded result: an object holding only the
// error annotation.
func (c *Coordinator) runObjectStage(ctx context.Context, name StageName, system, prompt string) (map[string]any, string) {
	text, err := c.invoke(ctx, system, prompt)
	if err != nil {
		return map[string]any{"error": err.Error()}, err.Error()
	}
	obj, ok := llm.ExtractObject(text)
	if !ok {
		msg := fmt.Sprintf("%s returned no parseable JSON object", name)
		return map[string]any{"error": msg}, msg
	}
	return obj, ""
}

// WriteReport invokes the report-writing capability with the accumulated
// evidence and stage outputs, plus optional repair instructions from a
// validation pass.
func (c *Coordinator) WriteReport(ctx context.Context, out *Outputs, regions []evidence.Region, attrs map[string]bool, repairInstructions string) (report.Draft, error) {
	prompt := fmt.Sprintf(
		"User groups: %s\n\nRegion evidence JSON:\n%s\n\nHazards JSON:\n%s\n\nComfort JSON:\n%s\n\nCompliance JSON:\n%s\n\nScoring JSON:\n%s\n\nRecommendations JSON:\n%s\n",
		FormatAttributes(attrs),
		mustJSON(regions),
		mustJSON(out.Hazards),
		mustJSON(out.Comfort),
		mustJSON(out.Compliance),
		mustJSON(out.Scoring),
		mustJSON(out.Recommendations),
	)
	if repairInstructions != "" {
		prompt += "\n" + repairInstructions
	}

	text, err := c.invoke(ctx, reportWriterSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("report writing failed: %w", err)
	}
	obj, ok := llm.ExtractObject(text)
	if !ok {
		return nil, fmt.Errorf("report writer returned no parseable JSON object")
	}
	return report.Draft(obj), nil
}

func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
