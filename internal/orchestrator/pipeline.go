package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nescampos/ainalyst/internal/agent"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ainalyst/orchestrator")

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a callback that receives every progress event
// synchronously, in addition to the Progress channel. It may be called from
// several goroutines when Concurrency is above 1.
func WithObserver(fn func(ProgressEvent)) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, fn) }
}

// WithLogger sets the pipeline's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline runs planner, synthesizer, aggregator, and compiler in sequence,
// delegating per-question research to a FanOut and progress reporting to a
// ProgressReporter and any registered observers.
type Pipeline struct {
	cfg        Config
	planner    Planner
	synth      Synthesizer
	aggregator Aggregator
	compiler   Compiler
	progress   *ProgressReporter
	observers  []func(ProgressEvent)
	logger     logger.Logger
	now        func() time.Time
}

// NewPipeline wires the four stages into a Pipeline.
func NewPipeline(cfg Config, planner Planner, synth Synthesizer, aggregator Aggregator, compiler Compiler, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		planner:    planner,
		synth:      synth,
		aggregator: aggregator,
		compiler:   compiler,
		progress:   NewProgressReporter(),
		logger:     logger.NewNoOpLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Progress returns a channel that emits progress events. Events are dropped
// when nobody drains it.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed; Run must not be called afterwards.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Run executes every stage for query. The only error is a ConfigurationError
// for an empty query, returned before any event is emitted. Otherwise the
// Result always carries a non-empty report and deck, and every fallback the
// run took is listed in Result.Degradations.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, &ConfigurationError{Field: "query", Reason: "must not be empty"}
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Query:      query,
		Capability: p.cfg.Capability,
		StartedAt:  p.now(),
	}
	log := p.logger.WithFields(map[string]interface{}{"run_id": res.RunID})

	ctx, span := tracer.Start(ctx, "orchestrator.pipeline.run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("run.capability", res.Capability.String()),
	))
	defer span.End()

	emit := func(ev ProgressEvent) {
		ev.RunID = res.RunID
		p.emit(ev)
	}
	stageStarted := func(stage Stage, message string) {
		emit(ProgressEvent{Stage: stage, Section: stage.String(), Status: ProgressWorking, Message: message})
	}
	stageDone := func(stage Stage, message string) {
		emit(ProgressEvent{Stage: stage, Section: stage.String(), Status: ProgressComplete, Message: message})
	}

	// Initializing.
	stageStarted(StageInitializing, "Starting research for: "+query)
	log.Info("research run started", map[string]interface{}{
		"query":      query,
		"capability": res.Capability.String(),
	})
	stageDone(StageInitializing, "")

	// Planning.
	p.timed(ctx, StagePlanning, func(ctx context.Context) {
		stageStarted(StagePlanning, "Decomposing the query")
		plan := p.planner.Decompose(ctx, query)
		questions := plan.Value
		if len(questions) == 0 {
			questions = []string{query}
			plan = agent.Degrade(questions, "planner returned no sub-questions")
		}
		if limit := p.cfg.MaxSubtopics; limit > 0 && len(questions) > limit {
			questions = questions[:limit]
		}
		res.SubQuestions = questions
		p.record(res, StagePlanning, "", plan.Degraded, plan.Note)
		stageDone(StagePlanning, fmt.Sprintf("%d sub-questions", len(questions)))
	})

	// Researching: one milestone per sub-question, emitted by the fan-out.
	p.timed(ctx, StageResearching, func(ctx context.Context) {
		outcomes := NewFanOut(p.synth, p.cfg.Concurrency, emit).Run(ctx, res.SubQuestions)
		res.Answers = make([]agent.SubAnswer, len(outcomes))
		for i, out := range outcomes {
			res.Answers[i] = out.Value
			p.record(res, StageResearching, res.SubQuestions[i], out.Degraded, out.Note)
		}
	})

	res.Issues = CheckCoherence(res.Answers)
	for _, issue := range res.Issues {
		log.Warn("coherence issue between sub-answers", map[string]interface{}{
			"issue": issue.Description,
		})
	}

	// Generating marks the hand-off from research to writing.
	stageStarted(StageGenerating, "Generating the research report")
	stageDone(StageGenerating, fmt.Sprintf("%d answers collected", len(res.Answers)))

	// Aggregating.
	p.timed(ctx, StageAggregating, func(ctx context.Context) {
		stageStarted(StageAggregating, "Writing the report")
		report := p.aggregator.Aggregate(ctx, query, res.Answers)
		if strings.TrimSpace(report.Value) == "" {
			report = agent.Degrade(
				agent.FallbackReport(query, "the report was empty", agent.FormatSections(res.Answers)),
				"aggregator returned an empty report")
		}
		res.Report = report.Value
		p.record(res, StageAggregating, "", report.Degraded, report.Note)
		stageDone(StageAggregating, "")
	})

	// Compiling.
	p.timed(ctx, StageCompiling, func(context.Context) {
		stageStarted(StageCompiling, "Compiling slides")
		res.Deck = p.compiler.Compile(query, res.Report)
		stageDone(StageCompiling, fmt.Sprintf("%d slides", len(res.Deck.Slides)))
	})

	res.FinishedAt = p.now()
	outcome := "ok"
	if res.Degraded() {
		outcome = "degraded"
		span.SetStatus(codes.Error, "degraded")
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	span.SetAttributes(
		attribute.Int("run.sub_questions", len(res.SubQuestions)),
		attribute.Int("run.degradations", len(res.Degradations)),
		attribute.Int("run.slides", len(res.Deck.Slides)),
	)

	log.Info("research run complete", map[string]interface{}{
		"outcome":       outcome,
		"sub_questions": len(res.SubQuestions),
		"degradations":  len(res.Degradations),
		"slides":        len(res.Deck.Slides),
		"duration_ms":   res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	})
	return res, nil
}

// timed runs fn inside a stage span and records the stage duration.
func (p *Pipeline) timed(ctx context.Context, stage Stage, fn func(context.Context)) {
	ctx, span := tracer.Start(ctx, "orchestrator.stage."+stage.String())
	defer span.End()

	start := time.Now()
	fn(ctx)
	metrics.StageDuration.WithLabelValues(stage.String()).Observe(time.Since(start).Seconds())
}

// record notes a degraded stage output on the result.
func (p *Pipeline) record(res *Result, stage Stage, subject string, degraded bool, note string) {
	if !degraded {
		return
	}
	res.Degradations = append(res.Degradations, Degradation{
		Stage:   stage.String(),
		Subject: subject,
		Note:    note,
	})
	metrics.StageDegraded.WithLabelValues(stage.String()).Inc()
	p.logger.Warn("stage degraded", map[string]interface{}{
		"run_id":  res.RunID,
		"stage":   stage.String(),
		"subject": subject,
		"note":    note,
	})
}

// emit fans an event out to the channel and every observer.
func (p *Pipeline) emit(ev ProgressEvent) {
	p.progress.Emit(ev)
	for _, fn := range p.observers {
		fn(ev)
	}
}
