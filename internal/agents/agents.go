// Package agents plans and dispatches the optional analysis stages that
// turn region evidence into a draft safety report.
package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/report"
)

// Completer is the language capability every analysis stage sits on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// StageName identifies one analysis stage.
type StageName string

// The full stage set in canonical dependency order.
const (
	StageHazard         StageName = "HazardAgent"
	StageComfort        StageName = "ComfortAgent"
	StageCompliance     StageName = "ComplianceAgent"
	StageScoring        StageName = "ScoringAgent"
	StageRecommendation StageName = "RecommendationAgent"
	StageReportWriter   StageName = "ReportWriterAgent"
)

// StageOrder is the canonical dependency order stages execute in.
var StageOrder = []StageName{
	StageHazard,
	StageComfort,
	StageCompliance,
	StageScoring,
	StageRecommendation,
	StageReportWriter,
}

// RegionHazards is the hazard output for one region. A degraded per-region
// call carries empty lists plus the Error annotation.
type RegionHazards struct {
	RegionName      string   `json:"region_name"`
	GeneralHazards  []string `json:"general_hazards"`
	SpecificHazards []string `json:"specific_hazards"`
	Error           string   `json:"error,omitempty"`
}

// Empty reports whether the region yielded no hazards at all.
func (h RegionHazards) Empty() bool {
	return len(h.GeneralHazards) == 0 && len(h.SpecificHazards) == 0
}

// Outputs aggregates every stage result of one coordinator run. Stages that
// failed leave a degraded value plus an entry in StageErrors; stages not in
// the plan leave their zero value.
type Outputs struct {
	Plan       []StageName `json:"plan"`
	PlanSource string      `json:"plan_source"`
	Skipped    []StageName `json:"skipped,omitempty"`

	Hazards         []RegionHazards `json:"hazards"`
	Comfort         map[string]any  `json:"comfort"`
	Compliance      map[string]any  `json:"compliance"`
	Scoring         map[string]any  `json:"scoring"`
	Recommendations map[string]any  `json:"recommendations"`
	Draft           report.Draft    `json:"draft_report"`

	StageErrors map[StageName]string `json:"stage_errors,omitempty"`
}

// HazardsEmpty reports whether every region came back hazard-free.
func (o *Outputs) HazardsEmpty() bool {
	for _, h := range o.Hazards {
		if !h.Empty() {
			return false
		}
	}
	return true
}

// attributeLabels maps user-attribute flags to their human-readable form.
var attributeLabels = []struct {
	key   string
	label string
}{
	{"isPregnant", "Pregnant"},
	{"isChildren", "Children"},
	{"isElderly", "Elderly"},
	{"isDisabled", "Disabled"},
	{"isAllergic", "Allergic"},
	{"isPets", "Pets"},
}

// FormatAttributes renders user-attribute flags as a readable blob for
// stage prompts.
func FormatAttributes(attrs map[string]bool) string {
	var active []string
	for _, a := range attributeLabels {
		if attrs[a.key] {
			active = append(active, a.label)
		}
	}
	if len(active) == 0 {
		return "No special user groups."
	}
	return strings.Join(active, ", ") + "."
}

// evidenceBlob lowercases all region labels and descriptions for keyword
// matching.
func evidenceBlob(regions []evidence.Region) string {
	var parts []string
	for _, r := range regions {
		parts = append(parts, r.Label, r.Description)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// mustJSON renders v for prompt payloads; marshal failures degrade to an
// empty object rather than aborting a stage.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func stageRank(name StageName) int {
	for i, n := range StageOrder {
		if n == name {
			return i
		}
	}
	return len(StageOrder)
}
