package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/llm"
)

// Plan sources reported alongside the stage plan.
const (
	PlanSourceRouter    = "router"
	PlanSourceHeuristic = "heuristic"
)

// comfortKeywords trigger the comfort stage when they appear in evidence
// text.
var comfortKeywords = []string{
	"mold", "humidity", "ventilation", "air", "odor", "smell",
	"noise", "lighting", "light", "dark", "glare", "damp", "stuffy",
}

// complianceRoomKeywords and complianceSafetyKeywords trigger the
// compliance stage.
var (
	complianceRoomKeywords   = []string{"kitchen", "bathroom", "laundry", "garage"}
	complianceSafetyKeywords = []string{"gas", "electrical", "fire", "smoke", "stairs", "balcony", "window"}
)

const routerSystem = "You select which analysis stages a home safety report needs. " +
	"Respond with JSON only: {\"agents\": [stage names]}. " +
	"Valid names: HazardAgent, ComfortAgent, ComplianceAgent, ScoringAgent, RecommendationAgent, ReportWriterAgent."

// PlanStages obtains a stage plan from the routing capability and falls
// back to the deterministic heuristic when the call fails or returns an
// unusable plan. The result is always normalized into canonical dependency
// order.
func PlanStages(ctx context.Context, router Completer, regions []evidence.Region, attrs map[string]bool, logger *slog.Logger) ([]StageName, string) {
	if logger == nil {
		logger = slog.Default()
	}

	selected, ok := routerPlan(ctx, router, regions, attrs, logger)
	source := PlanSourceRouter
	if !ok {
		selected = heuristicPlan(regions, attrs)
		source = PlanSourceHeuristic
	}
	return normalizePlan(selected), source
}

// routerPlan asks the routing capability for a plan. Any failure or
// malformed response reports ok=false; absence of the expected shape is
// "no data", not an error.
func routerPlan(ctx context.Context, router Completer, regions []evidence.Region, attrs map[string]bool, logger *slog.Logger) ([]StageName, bool) {
	if router == nil {
		return nil, false
	}

	payload := mustJSON(map[string]any{
		"region_evidence": regions,
		"user_attributes": attrs,
	})
	text, err := router.Complete(ctx, routerSystem, payload)
	if err != nil {
		logger.Warn("stage routing call failed, using heuristic plan", "error", err)
		return nil, false
	}

	obj, ok := llm.ExtractObject(text)
	if !ok {
		logger.Warn("stage routing returned no parseable plan, using heuristic plan")
		return nil, false
	}
	rawAgents, ok := obj["agents"].([]any)
	if !ok {
		return nil, false
	}

	var selected []StageName
	for _, raw := range rawAgents {
		name, ok := raw.(string)
		if !ok {
			continue
		}
		if stageRank(StageName(name)) < len(StageOrder) {
			selected = append(selected, StageName(name))
		}
	}
	if len(selected) == 0 {
		return nil, false
	}
	return selected, true
}

// heuristicPlan is the deterministic fallback: hazards always run, comfort
// and compliance run on attribute flags or evidence keywords, scoring and
// recommendations run whenever evidence exists, and the report writer is
// always last.
func heuristicPlan(regions []evidence.Region, attrs map[string]bool) []StageName {
	selected := []StageName{StageHazard}
	if needsComfort(regions, attrs) {
		selected = append(selected, StageComfort)
	}
	if needsCompliance(regions) {
		selected = append(selected, StageCompliance)
	}
	if len(regions) > 0 {
		selected = append(selected, StageScoring, StageRecommendation)
	}
	return append(selected, StageReportWriter)
}

func needsComfort(regions []evidence.Region, attrs map[string]bool) bool {
	for _, set := range attrs {
		if set {
			return true
		}
	}
	return containsAny(evidenceBlob(regions), comfortKeywords)
}

func needsCompliance(regions []evidence.Region) bool {
	blob := evidenceBlob(regions)
	return containsAny(blob, complianceRoomKeywords) || containsAny(blob, complianceSafetyKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// normalizePlan reorders the selection into canonical dependency order and
// repairs structural gaps: HazardAgent is always first, ReportWriterAgent
// always last, and ScoringAgent is inserted whenever RecommendationAgent is
// present without it.
func normalizePlan(selected []StageName) []StageName {
	present := make(map[StageName]bool, len(selected))
	for _, name := range selected {
		present[name] = true
	}

	present[StageHazard] = true
	present[StageReportWriter] = true
	if present[StageRecommendation] {
		present[StageScoring] = true
	}

	var ordered []StageName
	for _, name := range StageOrder {
		if present[name] {
			ordered = append(ordered, name)
		}
	}
	return ordered
}
