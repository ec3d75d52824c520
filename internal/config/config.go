// Package config loads and validates pipeline configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the pipeline. Zero-valued fields are
// filled from defaults before validation.
type Config struct {
	// Frame extraction.
	SampleRate float64 `yaml:"sample_rate"`

	// Quality filtering.
	HashDistance  int     `yaml:"hash_distance"`
	BlurThreshold float64 `yaml:"blur_threshold"`
	DarkThreshold float64 `yaml:"dark_threshold"`
	DropFaces     bool    `yaml:"drop_faces"`

	// Scene segmentation.
	CorrelationThreshold float64 `yaml:"correlation_threshold"`

	// Representative selection.
	MaxFrames               int  `yaml:"max_frames"`
	MaxPerRoom              int  `yaml:"max_per_room"`
	MaxCandidatesPerSegment int  `yaml:"max_candidates_per_segment"`
	ShortSegmentLen         int  `yaml:"short_segment_len"`
	ObjectYieldCap          int  `yaml:"object_yield_cap"`
	AnnotateFrames          bool `yaml:"annotate_frames"`

	// Evidence grouping.
	CharBudget int `yaml:"char_budget"`

	// Validation loop.
	MaxIterations int `yaml:"max_iterations"`

	// Agent pipeline.
	MaxConcurrency int `yaml:"max_concurrency"`
	Retries        int `yaml:"retries"`

	// External services.
	DetectorURL    string  `yaml:"detector_url"`
	DetectorAPIKey string  `yaml:"detector_api_key"`
	MinConfidence  float64 `yaml:"min_confidence"`
	LLMURL         string  `yaml:"llm_url"`
	LLMAPIKey      string  `yaml:"llm_api_key"`
	Model          string  `yaml:"model"`
	VisionModel    string  `yaml:"vision_model"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SampleRate:              1.0,
		HashDistance:            12,
		BlurThreshold:           50,
		DarkThreshold:           50,
		DropFaces:               true,
		CorrelationThreshold:    0.70,
		MaxFrames:               15,
		MaxPerRoom:              3,
		MaxCandidatesPerSegment: 3,
		ShortSegmentLen:         3,
		ObjectYieldCap:          6,
		AnnotateFrames:          true,
		CharBudget:              600,
		MaxIterations:           3,
		MaxConcurrency:          5,
		Retries:                 2,
		MinConfidence:           0.5,
		Model:                   "gpt-4o-mini",
		VisionModel:             "gpt-4o-mini",
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and floors the counters that must stay
// positive.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", c.SampleRate)
	}
	if c.CorrelationThreshold < -1 || c.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation_threshold must be in [-1, 1], got %v", c.CorrelationThreshold)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", c.MinConfidence)
	}
	if c.MaxFrames < 1 {
		return fmt.Errorf("max_frames must be at least 1, got %d", c.MaxFrames)
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.MaxIterations < 1 {
		c.MaxIterations = 1
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return nil
}
