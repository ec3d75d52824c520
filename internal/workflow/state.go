// Package workflow owns the per-run pipeline state and the orchestration
// that turns a walkthrough video into region evidence and a validated
// report.
package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halverson/homewalk/internal/agents"
	"github.com/halverson/homewalk/internal/evidence"
	"github.com/halverson/homewalk/internal/filter"
	"github.com/halverson/homewalk/internal/frame"
	"github.com/halverson/homewalk/internal/report"
	"github.com/halverson/homewalk/internal/segment"
	"github.com/halverson/homewalk/internal/selector"
)

// TraceEvent is one step notification on the trace stream.
type TraceEvent struct {
	Step      string         `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
}

// TraceListener receives trace events as they are appended. A panicking
// listener is isolated from the run.
type TraceListener func(TraceEvent)

// State is the mutable aggregate owned by one pipeline run. It lives for
// the duration of the run and is not persisted by the core.
type State struct {
	RunID          string
	VideoPath      string
	UserAttributes map[string]bool

	Frames         []frame.Frame
	FilterStats    filter.Stats
	Segments       []segment.Segment
	Representative []selector.Candidate
	Regions        []evidence.Region

	Analysis    *agents.Outputs
	Report      report.Draft
	ReportValid bool
	Iterations  int
	Validation  *report.ValidationResult

	// Warning carries the human-readable reason for a fail-soft early
	// exit. Empty on a complete run.
	Warning string

	mu        sync.Mutex
	traceLog  []TraceEvent
	listeners []TraceListener
}

// NewState creates the state for one run.
func NewState(videoPath string, attrs map[string]bool) *State {
	return &State{
		RunID:          uuid.NewString(),
		VideoPath:      videoPath,
		UserAttributes: attrs,
	}
}

// AddListener registers a live trace listener. Listeners registered after
// events were appended only see subsequent events.
func (s *State) AddListener(l TraceListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Trace appends an event to the append-only trace log and notifies every
// registered listener.
func (s *State) Trace(step string, details map[string]any) {
	event := TraceEvent{Step: step, Timestamp: time.Now(), Details: details}

	s.mu.Lock()
	s.traceLog = append(s.traceLog, event)
	listeners := make([]TraceListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() { _ = recover() }()
			l(event)
		}()
	}
}

// TraceLog returns a copy of the trace log so far.
func (s *State) TraceLog() []TraceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TraceEvent, len(s.traceLog))
	copy(out, s.traceLog)
	return out
}

// RepresentativePaths returns the representative image paths in selection
// order, for the surrounding system.
func (s *State) RepresentativePaths() []string {
	paths := make([]string, 0, len(s.Representative))
	for _, c := range s.Representative {
		paths = append(paths, c.Frame.Path)
	}
	return paths
}

// Snapshot renders the state as a JSON-able map for the surrounding
// system.
func (s *State) Snapshot() map[string]any {
	framePaths := make([]string, 0, len(s.Frames))
	for _, fr := range s.Frames {
		framePaths = append(framePaths, fr.Path)
	}

	snapshot := map[string]any{
		"run_id":                s.RunID,
		"video_path":            s.VideoPath,
		"user_attributes":       s.UserAttributes,
		"frames":                framePaths,
		"filter_stats":          s.FilterStats,
		"representative_images": s.RepresentativePaths(),
		"region_evidence":       s.Regions,
		"trace_log":             s.TraceLog(),
	}
	if s.Analysis != nil {
		snapshot["analysis"] = s.Analysis
	}
	if s.Report != nil {
		snapshot["report"] = s.Report
		snapshot["report_valid"] = s.ReportValid
		snapshot["iterations"] = s.Iterations
	}
	if s.Validation != nil {
		snapshot["validation"] = s.Validation
	}
	if s.Warning != "" {
		snapshot["warning"] = s.Warning
	}
	return snapshot
}
