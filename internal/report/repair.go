package report

import (
	"context"
	"log/slog"
	"strings"
)

// Regenerator re-invokes the report-writing capability with the original
// evidence plus repair instructions and returns a replacement draft.
type Regenerator func(ctx context.Context, repairInstructions string) (Draft, error)

// Outcome is the terminal state of a repair loop run. The latest attempt is
// never discarded, even on exhaustion.
type Outcome struct {
	Report Draft
	// Valid reports whether the final draft passed validation.
	Valid bool
	// Iterations is the number of validation passes performed.
	Iterations int
	// Validation is the most recent validation result. On exhaustion it
	// describes the draft that preceded the final regeneration.
	Validation ValidationResult
}

// RepairLoop is the bounded Validate -> GenerateRepairInstructions ->
// Regenerate state machine. Termination is guaranteed by MaxIterations.
type RepairLoop struct {
	MaxIterations int
	Logger        *slog.Logger
}

// NewRepairLoop creates a loop bounded by maxIterations (floor 1).
func NewRepairLoop(maxIterations int, logger *slog.Logger) *RepairLoop {
	if maxIterations < 1 {
		maxIterations = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairLoop{MaxIterations: maxIterations, Logger: logger}
}

// Run validates and repairs initial until it passes or the iteration bound
// is exhausted. A failing regeneration keeps the current draft and consumes
// the iteration; the loop degrades rather than aborting.
func (l *RepairLoop) Run(ctx context.Context, initial Draft, regen Regenerator) Outcome {
	current := initial
	var last ValidationResult

	for iteration := 1; iteration <= l.MaxIterations; iteration++ {
		last = Validate(current)
		l.Logger.Debug("repair loop validation",
			"iteration", iteration, "valid", last.Valid, "errors", len(last.Errors))

		if last.Valid {
			return Outcome{Report: current, Valid: true, Iterations: iteration, Validation: last}
		}

		instructions := RepairInstructions(last)
		repaired, err := regen(ctx, instructions)
		if err != nil {
			l.Logger.Warn("report regeneration failed, keeping last attempt",
				"iteration", iteration, "error", err)
			continue
		}
		current = repaired
	}

	l.Logger.Warn("repair loop exhausted", "iterations", l.MaxIterations, "errors", len(last.Errors))
	return Outcome{Report: current, Valid: false, Iterations: l.MaxIterations, Validation: last}
}

// RepairInstructions serializes validation errors and their hints into the
// instruction blob fed back to the report writer.
func RepairInstructions(v ValidationResult) string {
	var b strings.Builder
	b.WriteString("The report has validation errors. Please fix the following:\n")
	for _, err := range v.Errors {
		b.WriteString("- ")
		b.WriteString(err)
		b.WriteByte('\n')
	}
	b.WriteString("\nRepair hints:\n")
	for _, hint := range v.RepairHints {
		b.WriteString("- ")
		b.WriteString(hint)
		b.WriteByte('\n')
	}
	return b.String()
}
