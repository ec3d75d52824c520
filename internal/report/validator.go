package report

import (
	"encoding/json"
	"fmt"
)

// Validate checks the structural requirements of a draft and returns a
// fresh ValidationResult. Validation is deterministic and never calls
// external capabilities.
func Validate(draft Draft) ValidationResult {
	v := &ValidationResult{}

	validateRegions(draft, v)
	validateTopLevel(draft, v)
	validateScores(draft, v)
	validateRecommendations(draft, v)

	v.Valid = len(v.Errors) == 0
	return *v
}

func (v *ValidationResult) fail(err, hint string) {
	v.Errors = append(v.Errors, err)
	v.RepairHints = append(v.RepairHints, hint)
}

func validateRegions(draft Draft, v *ValidationResult) {
	raw, ok := draft["regions"]
	if !ok {
		v.fail("Report must contain 'regions' key",
			"Add 'regions' key with a list of region objects")
		return
	}
	regions, ok := raw.([]any)
	if !ok {
		v.fail("'regions' must be a list",
			"Convert 'regions' to a list of region objects")
		return
	}
	if len(regions) == 0 {
		v.fail("'regions' must not be empty",
			"Generate at least one region object with required fields")
		return
	}

	for i, raw := range regions {
		region, ok := raw.(map[string]any)
		if !ok {
			v.fail(fmt.Sprintf("Region at index %d must be an object", i),
				fmt.Sprintf("Convert region at index %d to an object", i))
			continue
		}
		validateRegion(i, region, v)
	}
}

func validateRegion(index int, region map[string]any, v *ValidationResult) {
	for _, key := range requiredRegionKeys {
		val, ok := region[key]
		if !ok {
			v.fail(fmt.Sprintf("Region %d: Missing required field: %s", index, key),
				fmt.Sprintf("For region %d: Add '%s' field with appropriate value", index, key))
			continue
		}
		if isEmpty(val) {
			v.fail(fmt.Sprintf("Region %d: Field '%s' is empty", index, key),
				fmt.Sprintf("For region %d: Provide a non-empty value for '%s'", index, key))
		}
	}

	for _, key := range regionListKeys {
		val, ok := region[key]
		if !ok {
			continue
		}
		if _, isList := val.([]any); !isList {
			v.fail(fmt.Sprintf("Region %d: '%s' must be a list", index, key),
				fmt.Sprintf("For region %d: Convert '%s' to a list of strings", index, key))
		}
	}

	raw, ok := region["scores"]
	if !ok {
		return
	}
	scores, ok := raw.([]any)
	if !ok {
		v.fail(fmt.Sprintf("Region %d: 'scores' must be a list", index),
			fmt.Sprintf("For region %d: Convert 'scores' to a list of %d float values", index, regionScoreCount))
		return
	}
	if len(scores) != regionScoreCount {
		v.fail(fmt.Sprintf("Region %d: 'scores' must contain exactly %d values, got %d", index, regionScoreCount, len(scores)),
			fmt.Sprintf("For region %d: Ensure 'scores' contains exactly %d float values", index, regionScoreCount))
		return
	}
	for i, raw := range scores {
		score, ok := asNumber(raw)
		if !ok || score < 0 || score > 5 {
			v.fail(fmt.Sprintf("Region %d: Score at index %d (%v) is not a number between 0 and 5", index, i, raw),
				fmt.Sprintf("For region %d: Change score at index %d to a number between 0 and 5", index, i))
		}
	}
}

func validateTopLevel(draft Draft, v *ValidationResult) {
	for _, key := range requiredTopLevelKeys {
		val, ok := draft[key]
		if !ok {
			v.fail(fmt.Sprintf("Missing required top-level field: %s", key),
				fmt.Sprintf("Add '%s' field with appropriate value", key))
			continue
		}
		if isEmpty(val) {
			v.fail(fmt.Sprintf("Field '%s' is empty", key),
				fmt.Sprintf("Provide a non-empty value for '%s'", key))
		}
	}
}

func validateScores(draft Draft, v *ValidationResult) {
	scores, ok := draft["scores"].(map[string]any)
	if !ok {
		return
	}
	if _, ok := scores["overall"]; !ok {
		v.fail("Missing 'scores.overall'",
			"Add 'scores.overall' as a number between 0 and 5")
	}
	if _, ok := scores["dimensions"]; !ok {
		v.fail("Missing 'scores.dimensions'",
			"Add 'scores.dimensions' with per-dimension scores")
	}
}

func validateRecommendations(draft Draft, v *ValidationResult) {
	raw, ok := draft["recommendations"]
	if !ok {
		return
	}
	recs, ok := raw.(map[string]any)
	if !ok {
		v.fail("'recommendations' must be an object",
			"Convert 'recommendations' to an object with 'actions'")
		return
	}
	actions, ok := recs["actions"].([]any)
	if !ok || len(actions) == 0 {
		v.fail("'recommendations.actions' must be a non-empty list",
			"Provide a non-empty 'recommendations.actions' list")
	}
}

// isEmpty reports whether a draft value counts as empty: nil, "", empty
// list or empty object.
func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// asNumber accepts the numeric types JSON decoding and in-process drafts
// produce.
func asNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
