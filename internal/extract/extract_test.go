package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{name: "ntsc rational", input: "30000/1001", want: 29.97002997, ok: true},
		{name: "pal rational", input: "25/1", want: 25, ok: true},
		{name: "bare number", input: "30", want: 30, ok: true},
		{name: "fractional", input: "24000/1001", want: 23.976023976, ok: true},
		{name: "zero denominator", input: "30/0", ok: false},
		{name: "zero numerator", input: "0/1", ok: false},
		{name: "garbage", input: "n/a", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRate(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestStrideForRate(t *testing.T) {
	tests := []struct {
		name       string
		fps        float64
		sampleRate float64
		want       int
	}{
		{name: "one per second at 30fps", fps: 30, sampleRate: 1, want: 30},
		{name: "two per second at 30fps", fps: 30, sampleRate: 2, want: 15},
		{name: "ntsc rounds to nearest", fps: 29.97, sampleRate: 1, want: 30},
		{name: "sample rate above fps floors to one", fps: 10, sampleRate: 30, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strideFor(tt.fps, tt.sampleRate))
		})
	}
}
