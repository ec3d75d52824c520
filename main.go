package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/halverson/homewalk/internal/agents"
	"github.com/halverson/homewalk/internal/config"
	"github.com/halverson/homewalk/internal/detect"
	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/extract"
	"github.com/halverson/homewalk/internal/filter"
	"github.com/halverson/homewalk/internal/llm"
	"github.com/halverson/homewalk/internal/report"
	"github.com/halverson/homewalk/internal/segment"
	"github.com/halverson/homewalk/internal/selector"
	"github.com/halverson/homewalk/internal/workflow"
)

func main() {
	var (
		videoPath  = flag.String("video", "", "path to the walkthrough video")
		workDir    = flag.String("out", "homewalk-out", "working directory for frames and the report")
		configPath = flag.String("config", "", "optional YAML config file")
		attrList   = flag.String("attrs", "", "comma-separated occupant attributes, e.g. isPregnant,isPets")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	if *videoPath == "" {
		fmt.Fprintln(os.Stderr, "usage: homewalk -video <path> [-out dir] [-config file] [-attrs list]")
		os.Exit(2)
	}

	if err := run(*videoPath, *workDir, *configPath, *attrList, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(videoPath, workDir, configPath, attrList string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}

	detector := detect.NewClient(cfg.DetectorURL, cfg.DetectorAPIKey, cfg.MinConfidence, logger)
	model := llm.NewClient(cfg.LLMURL, cfg.LLMAPIKey, cfg.Model, cfg.VisionModel, logger)

	var faces filter.FaceCounter
	if cfg.DropFaces && cfg.DetectorURL != "" {
		faces = detector
	}

	coordinator := agents.NewCoordinator(model, model, agents.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Retries:        cfg.Retries,
		Logger:         logger,
	})

	orchestrator := workflow.New(workflow.Deps{
		Extractor: extract.New(cfg.SampleRate, logger),
		Filter: filter.New(filter.Config{
			HashDistance:  cfg.HashDistance,
			BlurThreshold: cfg.BlurThreshold,
			DarkThreshold: cfg.DarkThreshold,
			Logger:        logger,
		}, faces),
		Segmenter: segment.New(cfg.CorrelationThreshold, logger),
		Selector: selector.New(selector.Config{
			MaxFrames:               cfg.MaxFrames,
			MaxPerRoom:              cfg.MaxPerRoom,
			MaxCandidatesPerSegment: cfg.MaxCandidatesPerSegment,
			ShortSegmentLen:         cfg.ShortSegmentLen,
			ObjectYieldCap:          cfg.ObjectYieldCap,
			Logger:                  logger,
		}, detector),
		Grouper: &evidence.Grouper{
			MaxPerRoom: cfg.MaxPerRoom,
			CharBudget: cfg.CharBudget,
		},
		Describer:      model,
		Coordinator:    coordinator,
		Repair:         report.NewRepairLoop(cfg.MaxIterations, logger),
		Annotate:       cfg.AnnotateFrames,
		MaxConcurrency: cfg.MaxConcurrency,
		Logger:         logger,
	})

	state := workflow.NewState(videoPath, parseAttrs(attrList))
	state.AddListener(func(e workflow.TraceEvent) {
		logger.Debug("trace", "step", e.Step, "details", e.Details)
	})

	logger.Info("starting analysis", "run_id", state.RunID, "video", videoPath)
	if err := orchestrator.Run(context.Background(), state, workDir); err != nil {
		return err
	}

	if err := writeSnapshot(state, workDir); err != nil {
		return err
	}

	if state.Warning != "" {
		logger.Warn("analysis incomplete", "run_id", state.RunID, "warning", state.Warning)
		return nil
	}
	logger.Info("analysis complete",
		"run_id", state.RunID,
		"frames_kept", len(state.Frames),
		"segments", len(state.Segments),
		"representatives", len(state.Representative),
		"regions", len(state.Regions),
		"report_valid", state.ReportValid,
		"iterations", state.Iterations,
	)
	return nil
}

func parseAttrs(list string) map[string]bool {
	attrs := map[string]bool{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			attrs[name] = true
		}
	}
	return attrs
}

func writeSnapshot(state *workflow.State, workDir string) error {
	data, err := json.MarshalIndent(state.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	path := filepath.Join(workDir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
