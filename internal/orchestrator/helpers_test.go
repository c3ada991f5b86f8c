package orchestrator

import (
	"context"
	"sync"

	"github.com/nescampos/ainalyst/internal/agent"
	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/retriever"
	"github.com/nescampos/ainalyst/internal/slides"
)

type planFunc func(ctx context.Context, query string) agent.Outcome[[]string]

func (f planFunc) Decompose(ctx context.Context, query string) agent.Outcome[[]string] {
	return f(ctx, query)
}

type answerFunc func(ctx context.Context, question string) agent.Outcome[agent.SubAnswer]

func (f answerFunc) Answer(ctx context.Context, question string) agent.Outcome[agent.SubAnswer] {
	return f(ctx, question)
}

type aggregateFunc func(ctx context.Context, query string, answers []agent.SubAnswer) agent.Outcome[string]

func (f aggregateFunc) Aggregate(ctx context.Context, query string, answers []agent.SubAnswer) agent.Outcome[string] {
	return f(ctx, query, answers)
}

func fixedPlan(questions ...string) planFunc {
	return func(context.Context, string) agent.Outcome[[]string] {
		return agent.Ok(questions)
	}
}

func echoAnswer() answerFunc {
	return func(_ context.Context, q string) agent.Outcome[agent.SubAnswer] {
		return agent.Ok(agent.SubAnswer{
			Question: q,
			Answer:   "Answer to " + q,
			Sources:  []agent.Source{{Title: "src", URL: "https://example.org/" + q}},
		})
	}
}

func sectionsReport() aggregateFunc {
	return func(_ context.Context, query string, answers []agent.SubAnswer) agent.Outcome[string] {
		return agent.Ok("# " + query + "\n\n" + agent.FormatSections(answers))
	}
}

// eventLog collects events from concurrent observers.
type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) observe(ev ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) milestones() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.events {
		if ev.Milestone() {
			out = append(out, ev.Stage.String())
		}
	}
	return out
}

func newTestCompiler() *slides.Compiler {
	return slides.NewCompiler()
}

// unconfiguredClient fails every call the way a client without an API key does.
type unconfiguredClient struct{}

func (unconfiguredClient) Complete(context.Context, llm.Request) (string, error) {
	return "", llm.ErrNotConfigured
}

// noScrape keeps a real gateway's search but never fetches pages.
type noScrape struct {
	retriever.Gateway
}

func (noScrape) ScrapeContent(context.Context, string) string { return "" }
