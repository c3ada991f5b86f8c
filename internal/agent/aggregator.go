package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/prompts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// noFindings stands in for the findings block when nothing was researched.
const noFindings = "No research findings were collected."

// AggregatorMaxTokens is the default completion budget for the report.
const AggregatorMaxTokens = 2000

// AggregatorConfig tunes the report-writing call.
type AggregatorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = AggregatorMaxTokens
	}
	return c
}

// Aggregator merges sub-answers into one markdown report.
type Aggregator struct {
	client llm.Client
	cfg    AggregatorConfig
	logger logger.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(client llm.Client, cfg AggregatorConfig, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Aggregator{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: log.WithFields(map[string]interface{}{"agent": string(RoleReporting)}),
	}
}

// Aggregate writes the report. Without answers, or when the model call
// fails, it returns the deterministic fallback report, which always names
// the query.
func (a *Aggregator) Aggregate(ctx context.Context, query string, answers []SubAnswer) Outcome[string] {
	ctx, span := tracer.Start(ctx, "agent.aggregator.aggregate")
	defer span.End()
	span.SetAttributes(attribute.Int("aggregator.answers", len(answers)))

	findings := FormatSections(answers)
	if len(answers) == 0 {
		return Degrade(FallbackReport(query, "no sub-questions were researched", findings),
			"no research findings to aggregate")
	}

	userPrompt, err := prompts.Render(prompts.ReportUser, struct{ Query, Findings string }{query, findings})
	if err == nil {
		var report string
		report, err = a.client.Complete(ctx, llm.Request{
			Model: a.cfg.Model,
			Messages: []llm.Message{
				llm.System(prompts.System(prompts.ReportSystem)),
				llm.User(userPrompt),
			},
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		})
		if err == nil && strings.TrimSpace(report) == "" {
			err = llm.ErrEmptyCompletion
		}
		if err == nil {
			return Ok(strings.TrimSpace(report))
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "report_fallback")
	a.logger.Warn("report generation failed, using fallback report", map[string]interface{}{"error": err.Error()})
	return Degrade(FallbackReport(query, err.Error(), findings), fmt.Sprintf("report generation failed: %v", err))
}

// FormatSections renders each answer as a level-2 section followed by its
// source links. Sections are separated by a blank line.
func FormatSections(answers []SubAnswer) string {
	sections := make([]string, 0, len(answers))
	for _, ans := range answers {
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n%s\n", ans.Question, strings.TrimSpace(ans.Answer))
		if len(ans.Sources) > 0 {
			sb.WriteString("\n**Sources:**\n")
			for _, src := range ans.Sources {
				fmt.Fprintf(&sb, "- [%s](%s)\n", src.Title, src.URL)
			}
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// FallbackReport builds the report used when the model cannot write one.
func FallbackReport(query, reason, findings string) string {
	if strings.TrimSpace(findings) == "" {
		findings = noFindings
	}
	return fmt.Sprintf("# Research Report: %s\n\nUnable to generate report due to an error: %s\n\n## Research Findings\n\n%s\n",
		query, reason, findings)
}
