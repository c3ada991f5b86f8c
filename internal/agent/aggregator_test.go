package agent

import (
	"context"
	"testing"

	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var sampleAnswers = []SubAnswer{
	{
		Question: "What is Go?",
		Answer:   "Go is a language.\n",
		Sources:  []Source{{Title: "Go", URL: "https://go.dev"}, {Title: "Wiki", URL: "https://en.wikipedia.org/wiki/Go"}},
	},
	{
		Question: "Who made Go?",
		Answer:   "Google.",
	},
}

func TestFormatSections(t *testing.T) {
	want := "## What is Go?\n\nGo is a language.\n\n**Sources:**\n" +
		"- [Go](https://go.dev)\n- [Wiki](https://en.wikipedia.org/wiki/Go)\n\n" +
		"## Who made Go?\n\nGoogle."
	assert.Equal(t, want, FormatSections(sampleAnswers))
	assert.Equal(t, "", FormatSections(nil))
}

func TestAggregator_UsesModelReport(t *testing.T) {
	var prompt string
	client := new(mockLLM)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		prompt = userMessage(req)
		return req.MaxTokens == 2000 && req.Temperature == 0.7
	})).Return("# Go\n\n## Intro\n\nText\n", nil).Once()

	out := NewAggregator(client, AggregatorConfig{}, logger.NewTestLogger(t)).Aggregate(context.Background(), "Go?", sampleAnswers)

	require.False(t, out.Degraded)
	assert.Equal(t, "# Go\n\n## Intro\n\nText", out.Value)
	assert.Contains(t, prompt, `"Go?"`)
	assert.Contains(t, prompt, "## What is Go?")
	client.AssertExpectations(t)
}

func TestAggregator_FallbackOnModelFailure(t *testing.T) {
	client := new(mockLLM)
	client.On("Complete", mock.Anything, mock.Anything).Return("", llm.ErrLLMTimeout).Once()

	out := NewAggregator(client, AggregatorConfig{}, nil).Aggregate(context.Background(), "Go?", sampleAnswers)

	assert.True(t, out.Degraded)
	assert.Contains(t, out.Value, "# Research Report: Go?")
	assert.Contains(t, out.Value, "Unable to generate report due to an error: LLM_TIMEOUT")
	assert.Contains(t, out.Value, "## Research Findings")
	assert.Contains(t, out.Value, "## Who made Go?")
}

func TestAggregator_EmptyAnswers(t *testing.T) {
	client := new(mockLLM)

	out := NewAggregator(client, AggregatorConfig{}, nil).Aggregate(context.Background(), "Quantum sensors", nil)

	assert.True(t, out.Degraded)
	assert.NotEmpty(t, out.Value)
	assert.Contains(t, out.Value, "Quantum sensors")
	assert.Contains(t, out.Value, noFindings)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOutcomeHelpers(t *testing.T) {
	ok := Ok(3)
	assert.False(t, ok.Degraded)
	assert.Empty(t, ok.Note)

	d := Degrade("x", "why")
	assert.True(t, d.Degraded)
	assert.Equal(t, "why", d.Note)
	assert.Equal(t, "x", d.Value)
}
