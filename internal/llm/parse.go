package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first JSON object or array out of model text.
// Markdown code fences are stripped first; if the whole blob does not
// parse, the outermost {...} or [...] span is tried. Absence of parseable
// JSON is reported via ok, never an error: malformed responses are "no
// data", not a crash.
func ExtractJSON(text string) (any, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, false
	}

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return parsed, true
	}

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(cleaned, pair[0])
		end := strings.LastIndexByte(cleaned, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err == nil {
			return parsed, true
		}
	}
	return nil, false
}

// ExtractObject is ExtractJSON narrowed to a JSON object.
func ExtractObject(text string) (map[string]any, bool) {
	parsed, ok := ExtractJSON(text)
	if !ok {
		return nil, false
	}
	obj, ok := parsed.(map[string]any)
	return obj, ok
}
