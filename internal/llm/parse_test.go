package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halverson/homewalk/internal/llm"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want any
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: map[string]any{"a": float64(1)},
			ok:   true,
		},
		{
			name: "bare array",
			text: `["x", "y"]`,
			want: []any{"x", "y"},
			ok:   true,
		},
		{
			name: "json code fence",
			text: "```json\n{\"a\": 1}\n```",
			want: map[string]any{"a": float64(1)},
			ok:   true,
		},
		{
			name: "plain code fence",
			text: "```\n{\"a\": 1}\n```",
			want: map[string]any{"a": float64(1)},
			ok:   true,
		},
		{
			name: "object embedded in prose",
			text: `Here is the report you asked for: {"a": 1} hope it helps!`,
			want: map[string]any{"a": float64(1)},
			ok:   true,
		},
		{
			name: "array embedded in prose",
			text: `The hazards are ["loose rug"] as requested.`,
			want: []any{"loose rug"},
			ok:   true,
		},
		{name: "no json at all", text: "cannot help with that", ok: false},
		{name: "empty", text: "", ok: false},
		{name: "whitespace only", text: "   \n\t", ok: false},
		{name: "unbalanced braces", text: `{"a": 1`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := llm.ExtractJSON(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	obj, ok := llm.ExtractObject(`{"agents": ["HazardAgent"]}`)
	require.True(t, ok)
	assert.Equal(t, []any{"HazardAgent"}, obj["agents"])

	_, ok = llm.ExtractObject(`["not", "an", "object"]`)
	assert.False(t, ok, "a JSON array is not an object")

	_, ok = llm.ExtractObject("no json here")
	assert.False(t, ok)
}
