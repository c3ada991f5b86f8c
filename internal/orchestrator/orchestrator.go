// Package orchestrator runs the research pipeline: planning, per-question
// research, report aggregation, and slide compilation. Every stage absorbs
// its own failures; only an empty query stops a run.
package orchestrator

import (
	"context"
	"time"

	"github.com/nescampos/ainalyst/internal/agent"
	"github.com/nescampos/ainalyst/internal/slides"
)

// Stage identifies a pipeline milestone, in the order a run reaches them.
type Stage int

const (
	StageInitializing Stage = iota
	StagePlanning
	StageResearching
	StageGenerating
	StageAggregating
	StageCompiling
)

func (s Stage) String() string {
	names := [...]string{
		"initializing",
		"planning",
		"researching",
		"generating",
		"aggregating",
		"compiling",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// ProgressEvent is emitted to the user during pipeline execution.
type ProgressEvent struct {
	RunID   string
	Stage   Stage
	Section string // stage name, or the sub-question while researching
	Status  ProgressStatus
	Message string
	Index   int // 1-based sub-question index; zero outside researching
	Total   int
}

// Milestone reports whether ev marks the start of a stage or of one
// sub-question.
func (ev ProgressEvent) Milestone() bool {
	return ev.Status == ProgressWorking
}

// ProgressStatus is the state of a stage or sub-question.
type ProgressStatus string

const (
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressDegraded ProgressStatus = "degraded"
	ProgressFailed   ProgressStatus = "failed"
)

// Planner decomposes a query into sub-questions.
type Planner interface {
	Decompose(ctx context.Context, query string) agent.Outcome[[]string]
}

// Synthesizer answers one sub-question.
type Synthesizer interface {
	Answer(ctx context.Context, question string) agent.Outcome[agent.SubAnswer]
}

// Aggregator writes the report from all sub-answers.
type Aggregator interface {
	Aggregate(ctx context.Context, query string, answers []agent.SubAnswer) agent.Outcome[string]
}

// Compiler turns the report into a slide deck.
type Compiler interface {
	Compile(query, markdown string) slides.Deck
}

// Compile-time interface checks.
var (
	_ Planner     = (*agent.Planner)(nil)
	_ Synthesizer = (*agent.Synthesizer)(nil)
	_ Aggregator  = (*agent.Aggregator)(nil)
	_ Compiler    = (*slides.Compiler)(nil)
)

// Degradation records one stage output that was replaced by a fallback.
type Degradation struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject,omitempty"`
	Note    string `json:"note"`
}

// Result is everything one run produced.
type Result struct {
	RunID        string
	Query        string
	Capability   CapabilityLevel
	SubQuestions []string
	Answers      []agent.SubAnswer
	Report       string
	Deck         slides.Deck
	Degradations []Degradation
	Issues       []CoherenceIssue
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Degraded reports whether any stage fell back during the run.
func (r *Result) Degraded() bool {
	return len(r.Degradations) > 0
}

// Orchestrator coordinates a research run.
type Orchestrator interface {
	// Run executes every stage for query.
	Run(ctx context.Context, query string) (*Result, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
