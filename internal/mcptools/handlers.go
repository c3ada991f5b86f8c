package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nescampos/ainalyst/internal/export"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/orchestrator"
	"github.com/nescampos/ainalyst/internal/slides"
	"github.com/nescampos/ainalyst/internal/status"
)

// ResearchService handles MCP tool calls. It wraps an Orchestrator for full
// runs and a Compiler for converting existing reports.
type ResearchService struct {
	pipeline  orchestrator.Orchestrator
	compiler  orchestrator.Compiler
	outputDir string
	log       logger.Logger
}

// NewResearchService creates a ResearchService. Saved runs go under
// outputDir.
func NewResearchService(pipeline orchestrator.Orchestrator, compiler orchestrator.Compiler, outputDir string, log logger.Logger) *ResearchService {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ResearchService{
		pipeline:  pipeline,
		compiler:  compiler,
		outputDir: outputDir,
		log:       log,
	}
}

// Research runs the whole pipeline for one query.
func (s *ResearchService) Research(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResearchInput,
) (*mcp.CallToolResult, ResearchOutput, error) {
	res, err := s.pipeline.Run(ctx, input.Query)
	if err != nil {
		return nil, ResearchOutput{}, err
	}

	out := ResearchOutput{
		RunID:        res.RunID,
		Query:        res.Query,
		Capability:   res.Capability.String(),
		SubQuestions: res.SubQuestions,
		Report:       res.Report,
		Slides:       len(res.Deck.Slides),
		Degraded:     res.Degraded(),
		Degradations: res.Degradations,
		Issues:       res.Issues,
	}

	if input.Save {
		_, dir, err := export.WriteRun(s.outputDir, res)
		if err != nil {
			return nil, out, fmt.Errorf("save run: %w", err)
		}
		out.RunDir = dir
		s.log.Info("research run saved", map[string]interface{}{
			"run_id": res.RunID,
			"dir":    dir,
		})
	}
	return nil, out, nil
}

// CompileSlides turns a markdown report into a rendered deck document.
func (s *ResearchService) CompileSlides(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CompileSlidesInput,
) (*mcp.CallToolResult, CompileSlidesOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = "json"
	}

	deck := s.compiler.Compile(input.Query, input.Markdown)
	doc, err := export.EncodeDeck(deck, format)
	if err != nil {
		return nil, CompileSlidesOutput{}, err
	}

	return nil, CompileSlidesOutput{
		Title:         deck.Title,
		Slides:        len(deck.Slides),
		Sections:      deck.Count(slides.SlideSection),
		ContentSlides: deck.Count(slides.SlideContent),
		Format:        format,
		Document:      string(doc),
	}, nil
}

// ListReports lists saved runs, newest first.
func (s *ResearchService) ListReports(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListReportsInput,
) (*mcp.CallToolResult, ListReportsOutput, error) {
	runs, err := status.ListRuns(s.outputDir)
	if err != nil {
		return nil, ListReportsOutput{}, err
	}
	if input.Limit > 0 && len(runs) > input.Limit {
		runs = runs[:input.Limit]
	}

	reports := make([]ReportSummary, 0, len(runs))
	for _, r := range runs {
		reports = append(reports, ReportSummary{
			ID:           r.ID,
			Name:         r.Name,
			RunID:        r.RunID,
			CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
			Slides:       r.Slides,
			Degradations: r.Degradations,
		})
	}
	return nil, ListReportsOutput{Reports: reports}, nil
}

// ReadReport returns the markdown report of one saved run.
func (s *ResearchService) ReadReport(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ReadReportInput,
) (*mcp.CallToolResult, ReadReportOutput, error) {
	detail, err := status.LoadRun(s.outputDir, input.ID)
	if err != nil {
		return nil, ReadReportOutput{}, err
	}
	return nil, ReadReportOutput{
		ID:     detail.ID,
		Name:   detail.Name,
		Report: detail.Report,
	}, nil
}
