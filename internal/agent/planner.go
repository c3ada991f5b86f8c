package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/prompts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxSubtopics bounds the plan length when PlannerConfig leaves it unset.
const DefaultMaxSubtopics = 3

// PlannerMaxTokens is the default completion budget for planning.
const PlannerMaxTokens = 500

var (
	errPlanNotJSON = errors.New("plan is not valid JSON")
	errPlanNoList  = errors.New("plan object has no sub-question list")
	errPlanShape   = errors.New("plan is neither an array nor an object")
)

// planListFields are the object fields unwrapped when the model returns an
// object instead of a bare array.
var planListFields = []string{"sub_questions", "subQuestions", "questions"}

// PlannerConfig tunes the planning call.
type PlannerConfig struct {
	Model        string
	MaxSubtopics int
	Temperature  float64
	MaxTokens    int
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.MaxSubtopics <= 0 {
		c.MaxSubtopics = DefaultMaxSubtopics
	}
	if c.Temperature == 0 {
		c.Temperature = 0.5
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = PlannerMaxTokens
	}
	return c
}

// Planner decomposes a query into sub-questions with one model call.
type Planner struct {
	client llm.Client
	cfg    PlannerConfig
	logger logger.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(client llm.Client, cfg PlannerConfig, log logger.Logger) *Planner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Planner{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: log.WithFields(map[string]interface{}{"agent": string(RolePlanning)}),
	}
}

// Decompose returns 1..MaxSubtopics sub-questions. Any model or parse
// failure degrades to the query itself.
func (p *Planner) Decompose(ctx context.Context, query string) Outcome[[]string] {
	ctx, span := tracer.Start(ctx, "agent.planner.decompose")
	defer span.End()

	query = strings.TrimSpace(query)
	identity := []string{query}

	userPrompt, err := prompts.Render(prompts.PlannerUser, struct{ Query string }{query})
	if err != nil {
		return p.degrade(span, identity, fmt.Sprintf("planner prompt failed: %v", err))
	}

	raw, err := p.client.Complete(ctx, llm.Request{
		Model: p.cfg.Model,
		Messages: []llm.Message{
			llm.System(prompts.System(prompts.PlannerSystem)),
			llm.User(userPrompt),
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm_invoke_failed")
		return p.degrade(span, identity, fmt.Sprintf("planner model call failed: %v", err))
	}

	items, err := parsePlan(raw)
	if err != nil {
		p.logger.Debug("unparseable plan", map[string]interface{}{"raw": raw})
		return p.degrade(span, identity, fmt.Sprintf("planner output rejected: %v", err))
	}

	questions := normalizeQuestions(items)
	if len(questions) == 0 {
		return p.degrade(span, identity, "planner returned no sub-questions")
	}
	if len(questions) > p.cfg.MaxSubtopics {
		questions = questions[:p.cfg.MaxSubtopics]
	}

	span.SetAttributes(attribute.Int("planner.sub_questions", len(questions)))
	p.logger.Info("research planned", map[string]interface{}{"sub_questions": len(questions)})
	return Ok(questions)
}

func (p *Planner) degrade(span trace.Span, identity []string, note string) Outcome[[]string] {
	span.SetAttributes(attribute.Bool("planner.degraded", true))
	p.logger.Warn("planning degraded to the original query", map[string]interface{}{"note": note})
	return Degrade(identity, note)
}

// parsePlan accepts a JSON array of strings, or an object carrying one in a
// known field.
func parsePlan(raw string) ([]string, error) {
	cleaned := cleanLLMJSON(raw)

	var generic any
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return nil, errPlanNotJSON
	}

	switch v := generic.(type) {
	case []any:
		return stringItems(v), nil
	case map[string]any:
		for _, field := range planListFields {
			if list, ok := v[field].([]any); ok {
				return stringItems(list), nil
			}
		}
		return nil, errPlanNoList
	default:
		return nil, errPlanShape
	}
}

// stringItems keeps the string entries of list, and the "question" field of
// object entries.
func stringItems(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if q, ok := v["question"].(string); ok {
				out = append(out, q)
			}
		}
	}
	return out
}

// normalizeQuestions trims entries and drops blanks and case-insensitive
// duplicates, preserving order.
func normalizeQuestions(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		q := strings.TrimSpace(item)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
