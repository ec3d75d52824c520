// Package report defines the structured report draft, its structural
// validator and the bounded validation/repair loop.
package report

// Draft is the structured report artifact under validation. Drafts are
// replaced wholesale on each repair iteration, never patched in place.
type Draft map[string]any

// ValidationResult is the pure outcome of one validation pass. Errors and
// RepairHints are parallel lists: each structural problem yields exactly
// one error string and one corresponding hint.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	RepairHints []string `json:"repair_hints"`
}

// requiredRegionKeys must be present and non-empty on every region object.
var requiredRegionKeys = []string{
	"regionName",
	"potentialHazards",
	"colorAndLightingEvaluation",
	"suggestions",
	"scores",
}

// regionListKeys must hold list values on a region object.
var regionListKeys = []string{
	"regionName",
	"potentialHazards",
	"colorAndLightingEvaluation",
	"suggestions",
}

// requiredTopLevelKeys must be present and non-empty on the draft itself.
var requiredTopLevelKeys = []string{
	"meta",
	"scores",
	"top_risks",
	"recommendations",
	"comfort",
	"compliance",
	"action_plan",
	"limitations",
}

// regionScoreCount is the exact length of a region's scores list:
// personal safety, special-group safety, color/lighting, psychological
// impact, final score.
const regionScoreCount = 5
