package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/prompts"
	"github.com/nescampos/ainalyst/internal/retriever"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// NoInformationAnswer is returned when retrieval yields nothing.
	NoInformationAnswer = "No relevant information found for this sub-question."

	// SynthesizerMaxTokens is the default completion budget per answer.
	SynthesizerMaxTokens = 1000

	defaultTopResults = 3
)

// SynthesizerConfig tunes the per-question synthesis call.
type SynthesizerConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// TopResults is how many search results are enriched and cited.
	TopResults int
}

func (c SynthesizerConfig) withDefaults() SynthesizerConfig {
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = SynthesizerMaxTokens
	}
	if c.TopResults <= 0 {
		c.TopResults = defaultTopResults
	}
	return c
}

// Synthesizer answers one sub-question from retrieved sources.
type Synthesizer struct {
	client  llm.Client
	gateway retriever.Gateway
	cfg     SynthesizerConfig
	logger  logger.Logger
}

// NewSynthesizer creates a Synthesizer that retrieves through gateway.
func NewSynthesizer(client llm.Client, gateway retriever.Gateway, cfg SynthesizerConfig, log logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Synthesizer{
		client:  client,
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		logger:  log.WithFields(map[string]interface{}{"agent": string(RoleResearch)}),
	}
}

// Answer researches question. It never fails: an empty search result set
// skips the model call, and a model failure is written into the answer text
// while the collected sources are kept.
func (s *Synthesizer) Answer(ctx context.Context, question string) Outcome[SubAnswer] {
	ctx, span := tracer.Start(ctx, "agent.synthesizer.answer")
	defer span.End()

	results := s.gateway.Search(ctx, question)
	span.SetAttributes(attribute.Int("synthesizer.search_results", len(results)))
	if len(results) == 0 {
		return Degrade(SubAnswer{Question: question, Answer: NoInformationAnswer, Sources: []Source{}},
			"no search results")
	}

	enriched := s.enrich(ctx, results)
	sources := make([]Source, 0, len(enriched))
	for _, e := range enriched {
		sources = append(sources, Source{Title: e.Title, URL: e.URL})
	}

	userPrompt, err := prompts.Render(prompts.SynthesizerUser, struct{ Question, Context string }{
		Question: question,
		Context:  buildSourceContext(enriched),
	})
	if err == nil {
		var answer string
		answer, err = s.client.Complete(ctx, llm.Request{
			Model: s.cfg.Model,
			Messages: []llm.Message{
				llm.System(prompts.System(prompts.SynthesizerSystem)),
				llm.User(userPrompt),
			},
			Temperature: s.cfg.Temperature,
			MaxTokens:   s.cfg.MaxTokens,
		})
		if err == nil && strings.TrimSpace(answer) == "" {
			err = llm.ErrEmptyCompletion
		}
		if err == nil {
			return Ok(SubAnswer{Question: question, Answer: strings.TrimSpace(answer), Sources: sources})
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "synthesis_failed")
	s.logger.Warn("synthesis failed", map[string]interface{}{
		"question": question,
		"error":    err.Error(),
	})
	return Degrade(SubAnswer{
		Question: question,
		Answer:   "Error researching this sub-question: " + err.Error(),
		Sources:  sources,
	}, fmt.Sprintf("synthesis failed: %v", err))
}

// enrich scrapes the top results. Each extraction failure falls back to the
// result's own snippet independently.
func (s *Synthesizer) enrich(ctx context.Context, results []retriever.SearchResult) []EnrichedResult {
	top := results
	if len(top) > s.cfg.TopResults {
		top = top[:s.cfg.TopResults]
	}

	enriched := make([]EnrichedResult, 0, len(top))
	for _, r := range top {
		e := EnrichedResult{SearchResult: r}
		// The placeholder URL is synthetic; there is no page behind it.
		if r.URL != "" && r.URL != retriever.PlaceholderURL {
			e.ExtractedContent = s.gateway.ScrapeContent(ctx, r.URL)
		}
		enriched = append(enriched, e)
	}
	return enriched
}

// buildSourceContext renders one "Source/Content" block per result.
func buildSourceContext(enriched []EnrichedResult) string {
	blocks := make([]string, 0, len(enriched))
	for _, e := range enriched {
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", e.Title, e.Text()))
	}
	return strings.Join(blocks, "\n\n")
}
