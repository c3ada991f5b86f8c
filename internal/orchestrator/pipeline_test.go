package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nescampos/ainalyst/internal/agent"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/retriever"
	"github.com/nescampos/ainalyst/internal/slides"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, cfg Config, planner Planner, synth Synthesizer, agg Aggregator, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger(t))}, opts...)
	p := NewPipeline(cfg, planner, synth, agg, newTestCompiler(), opts...)
	t.Cleanup(p.Close)
	return p
}

func TestPipeline_EmptyQueryIsConfigurationError(t *testing.T) {
	var log eventLog
	p := newTestPipeline(t, Config{}, fixedPlan("x"), echoAnswer(), sectionsReport(), WithObserver(log.observe))

	for _, q := range []string{"", "   \n\t"} {
		res, err := p.Run(context.Background(), q)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrConfiguration))

		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "query", cfgErr.Field)
	}
	assert.Empty(t, log.events, "no milestone may be emitted for a rejected query")
}

func TestPipeline_MilestoneOrder(t *testing.T) {
	var log eventLog
	p := newTestPipeline(t, Config{}, fixedPlan("q1", "q2", "q3"), echoAnswer(), sectionsReport(), WithObserver(log.observe))

	_, err := p.Run(context.Background(), "What is Go?")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"initializing",
		"planning",
		"researching", "researching", "researching",
		"generating",
		"aggregating",
		"compiling",
	}, log.milestones())
}

func TestPipeline_MilestoneOrderWithConcurrency(t *testing.T) {
	var log eventLog
	p := newTestPipeline(t, Config{Concurrency: 3}, fixedPlan("q1", "q2", "q3"), echoAnswer(), sectionsReport(), WithObserver(log.observe))

	_, err := p.Run(context.Background(), "What is Go?")
	require.NoError(t, err)

	var researched []string
	for _, ev := range log.events {
		if ev.Milestone() && ev.Stage == StageResearching {
			researched = append(researched, ev.Section)
		}
	}
	assert.Equal(t, []string{"q1", "q2", "q3"}, researched)
	assert.Equal(t, "compiling", log.milestones()[len(log.milestones())-1])
}

func TestPipeline_EventsCarryRunID(t *testing.T) {
	var log eventLog
	p := newTestPipeline(t, Config{Concurrency: 2}, fixedPlan("q1", "q2"), echoAnswer(), sectionsReport(), WithObserver(log.observe))

	res, err := p.Run(context.Background(), "What is Go?")
	require.NoError(t, err)

	require.NotEmpty(t, log.events)
	for _, ev := range log.events {
		assert.Equal(t, res.RunID, ev.RunID, "event %s/%s", ev.Stage, ev.Section)
	}
}

func TestPipeline_EveryStageStartsWorking(t *testing.T) {
	var log eventLog
	p := newTestPipeline(t, Config{Concurrency: 3}, fixedPlan("q1", "q2", "q3"), echoAnswer(), sectionsReport(), WithObserver(log.observe))

	_, err := p.Run(context.Background(), "What is Go?")
	require.NoError(t, err)

	// Queued sub-questions emit nothing until admitted; the first event for
	// any stage or question is always working.
	seen := make(map[string]bool)
	for _, ev := range log.events {
		key := ev.Stage.String() + "/" + ev.Section
		if !seen[key] {
			assert.Equal(t, ProgressWorking, ev.Status, "first event for %s", key)
			seen[key] = true
		}
		assert.Contains(t, []ProgressStatus{ProgressWorking, ProgressComplete, ProgressDegraded, ProgressFailed}, ev.Status)
	}
}

func TestPipeline_HappyPath(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := newTestPipeline(t, Config{Capability: CapFull}, fixedPlan("Alpha?", "Beta?"), echoAnswer(), sectionsReport(),
		WithClock(func() time.Time { return start }))

	res, err := p.Run(context.Background(), "  Greek letters  ")
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "Greek letters", res.Query)
	assert.Equal(t, CapFull, res.Capability)
	assert.Equal(t, []string{"Alpha?", "Beta?"}, res.SubQuestions)
	require.Len(t, res.Answers, 2)
	assert.Equal(t, "Alpha?", res.Answers[0].Question)
	assert.Equal(t, "Beta?", res.Answers[1].Question)
	assert.False(t, res.Degraded())
	assert.Equal(t, start, res.StartedAt)
	assert.Equal(t, start, res.FinishedAt)

	assert.True(t, strings.HasPrefix(res.Report, "# Greek letters"))
	assert.Equal(t, 1, res.Deck.Count(slides.SlideTitle))
	assert.Equal(t, 2, res.Deck.Count(slides.SlideSection))
	assert.GreaterOrEqual(t, res.Deck.Count(slides.SlideContent), 2)
}

func TestPipeline_DegradationsAreRecorded(t *testing.T) {
	planner := planFunc(func(_ context.Context, q string) agent.Outcome[[]string] {
		return agent.Degrade([]string{q}, "plan is not valid JSON")
	})
	synth := answerFunc(func(_ context.Context, q string) agent.Outcome[agent.SubAnswer] {
		return agent.Degrade(agent.SubAnswer{Question: q, Answer: agent.NoInformationAnswer, Sources: []agent.Source{}}, "no search results")
	})
	agg := aggregateFunc(func(_ context.Context, q string, answers []agent.SubAnswer) agent.Outcome[string] {
		return agent.Degrade(agent.FallbackReport(q, "LLM_TIMEOUT", agent.FormatSections(answers)), "report generation failed: LLM_TIMEOUT")
	})

	var log eventLog
	p := newTestPipeline(t, Config{}, planner, synth, agg, WithObserver(log.observe))

	res, err := p.Run(context.Background(), "Quantum sensors")
	require.NoError(t, err)

	assert.True(t, res.Degraded())
	assert.Equal(t, []Degradation{
		{Stage: "planning", Note: "plan is not valid JSON"},
		{Stage: "researching", Subject: "Quantum sensors", Note: "no search results"},
		{Stage: "aggregating", Note: "report generation failed: LLM_TIMEOUT"},
	}, res.Degradations)
	assert.Contains(t, res.Report, "Quantum sensors")
	assert.Contains(t, res.Report, agent.NoInformationAnswer)
	assert.NotEmpty(t, res.Deck.Slides)

	var degraded int
	for _, ev := range log.events {
		if ev.Status == ProgressDegraded {
			degraded++
		}
	}
	assert.Equal(t, 1, degraded, "the degraded sub-question is reported")
}

func TestPipeline_PlanGuards(t *testing.T) {
	t.Run("empty plan becomes the query", func(t *testing.T) {
		p := newTestPipeline(t, Config{}, fixedPlan(), echoAnswer(), sectionsReport())

		res, err := p.Run(context.Background(), "solo")
		require.NoError(t, err)
		assert.Equal(t, []string{"solo"}, res.SubQuestions)
		require.Len(t, res.Degradations, 1)
		assert.Equal(t, "planning", res.Degradations[0].Stage)
	})

	t.Run("plan is capped at MaxSubtopics", func(t *testing.T) {
		p := newTestPipeline(t, Config{MaxSubtopics: 2}, fixedPlan("a", "b", "c", "d"), echoAnswer(), sectionsReport())

		res, err := p.Run(context.Background(), "letters")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, res.SubQuestions)
		assert.Len(t, res.Answers, 2)
	})
}

func TestPipeline_EmptyReportFallsBack(t *testing.T) {
	blank := aggregateFunc(func(context.Context, string, []agent.SubAnswer) agent.Outcome[string] {
		return agent.Ok("  ")
	})
	p := newTestPipeline(t, Config{}, fixedPlan("q"), echoAnswer(), blank)

	res, err := p.Run(context.Background(), "Edge case")
	require.NoError(t, err)
	assert.Contains(t, res.Report, "# Research Report: Edge case")
	assert.Contains(t, res.Report, "## q")
	assert.True(t, res.Degraded())
}

func TestPipeline_ProgressChannel(t *testing.T) {
	p := NewPipeline(Config{}, fixedPlan("q"), echoAnswer(), sectionsReport(), newTestCompiler())

	_, err := p.Run(context.Background(), "channel")
	require.NoError(t, err)
	p.Close()

	var stages []Stage
	for ev := range p.Progress() {
		if ev.Milestone() {
			stages = append(stages, ev.Stage)
		}
	}
	assert.Equal(t, []Stage{
		StageInitializing, StagePlanning, StageResearching, StageGenerating, StageAggregating, StageCompiling,
	}, stages)
}

func TestPipeline_CoherenceIssuesAreReported(t *testing.T) {
	synth := answerFunc(func(_ context.Context, q string) agent.Outcome[agent.SubAnswer] {
		versions := map[string]string{"a": "Node 18.19 is current.", "b": "Node 20.11 is current."}
		return agent.Ok(agent.SubAnswer{Question: q, Answer: versions[q]})
	})
	p := newTestPipeline(t, Config{}, fixedPlan("a", "b"), synth, sectionsReport())

	res, err := p.Run(context.Background(), "node")
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.False(t, res.Degraded(), "coherence issues are warnings, not degradations")
}

// The whole pipeline with real agents: no model key and a retriever without
// credentials still produces a report and deck.
func TestPipeline_OfflineRunWithRealAgents(t *testing.T) {
	gw, err := retriever.New(retriever.KindTavily, retriever.Config{})
	require.NoError(t, err)
	client := unconfiguredClient{}
	log := logger.NewTestLogger(t)

	p := NewPipeline(Config{Capability: DetectCapability(false, retriever.KindTavily, retriever.Config{})},
		agent.NewPlanner(client, agent.PlannerConfig{}, log),
		agent.NewSynthesizer(client, noScrape{gw}, agent.SynthesizerConfig{}, log),
		agent.NewAggregator(client, agent.AggregatorConfig{}, log),
		slides.NewCompiler(),
		WithLogger(log),
	)
	defer p.Close()

	res, err := p.Run(context.Background(), "What is Node runtime?")
	require.NoError(t, err)

	assert.Equal(t, CapOffline, res.Capability)
	assert.Equal(t, []string{"What is Node runtime?"}, res.SubQuestions)
	require.Len(t, res.Answers, 1)
	assert.Equal(t, []agent.Source{{Title: "Search results for: What is Node runtime?", URL: retriever.PlaceholderURL}}, res.Answers[0].Sources)
	assert.Contains(t, res.Report, "What is Node runtime?")
	assert.Equal(t, 1, res.Deck.Count(slides.SlideTitle))
	assert.GreaterOrEqual(t, res.Deck.Count(slides.SlideContent), 1)
}

func TestDetectCapability(t *testing.T) {
	assert.Equal(t, CapOffline, DetectCapability(false, retriever.KindWeb, retriever.Config{}))
	assert.Equal(t, CapModelOnly, DetectCapability(true, retriever.KindSerpAPI, retriever.Config{}))
	assert.Equal(t, CapFull, DetectCapability(true, retriever.KindSerpAPI, retriever.Config{SerpAPIKey: "k"}))
	assert.Equal(t, CapFull, DetectCapability(true, retriever.KindWeb, retriever.Config{}))
	assert.Equal(t, "model-only", CapModelOnly.String())
}
