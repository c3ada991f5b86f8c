package mcptools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nescampos/ainalyst/internal/export"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/orchestrator"
	"github.com/nescampos/ainalyst/internal/slides"
	"github.com/nescampos/ainalyst/internal/status"
)

// mockOrchestrator is a test double for orchestrator.Orchestrator.
type mockOrchestrator struct {
	mock.Mock
	progressCh chan orchestrator.ProgressEvent
}

func newMockOrchestrator() *mockOrchestrator {
	ch := make(chan orchestrator.ProgressEvent)
	close(ch) // immediately closed since we don't need progress
	return &mockOrchestrator{progressCh: ch}
}

func (m *mockOrchestrator) Run(ctx context.Context, query string) (*orchestrator.Result, error) {
	args := m.Called(ctx, query)
	res, _ := args.Get(0).(*orchestrator.Result)
	return res, args.Error(1)
}

func (m *mockOrchestrator) Progress() <-chan orchestrator.ProgressEvent {
	return m.progressCh
}

var fixedNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func testCompiler() *slides.Compiler {
	return slides.NewCompiler(slides.WithClock(func() time.Time { return fixedNow }))
}

const sampleReport = "# Edge AI\n\n## Overview\n\nEdge AI runs **models** on devices.\n\n## Adoption\n\n- phones\n- cars\n"

func sampleResult() *orchestrator.Result {
	return &orchestrator.Result{
		RunID:        "9f1c2d3e-aaaa-bbbb-cccc-000000000001",
		Query:        "Edge AI",
		Capability:   orchestrator.CapFull,
		SubQuestions: []string{"What is edge AI?", "Who adopts it?"},
		Report:       sampleReport,
		Deck:         testCompiler().Compile("Edge AI", sampleReport),
		Degradations: []orchestrator.Degradation{
			{Stage: "researching", Subject: "Who adopts it?", Note: "search returned only the placeholder source"},
		},
		StartedAt:  fixedNow,
		FinishedAt: fixedNow.Add(2 * time.Second),
	}
}

func newService(t *testing.T, pipeline orchestrator.Orchestrator) (*ResearchService, string) {
	t.Helper()
	out := t.TempDir()
	return NewResearchService(pipeline, testCompiler(), out, logger.NewTestLogger(t)), out
}

func TestResearchService_Research(t *testing.T) {
	pipeline := newMockOrchestrator()
	pipeline.On("Run", mock.Anything, "Edge AI").Return(sampleResult(), nil).Once()
	svc, out := newService(t, pipeline)

	_, got, err := svc.Research(context.Background(), nil, ResearchInput{Query: "Edge AI"})
	require.NoError(t, err)

	assert.Equal(t, "Edge AI", got.Query)
	assert.Equal(t, "full", got.Capability)
	assert.Equal(t, []string{"What is edge AI?", "Who adopts it?"}, got.SubQuestions)
	assert.Equal(t, sampleReport, got.Report)
	assert.Equal(t, 5, got.Slides)
	assert.True(t, got.Degraded)
	assert.Len(t, got.Degradations, 1)
	assert.Empty(t, got.RunDir)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written without save")
	pipeline.AssertExpectations(t)
}

func TestResearchService_Research_Save(t *testing.T) {
	pipeline := newMockOrchestrator()
	pipeline.On("Run", mock.Anything, "Edge AI").Return(sampleResult(), nil).Once()
	svc, out := newService(t, pipeline)

	_, got, err := svc.Research(context.Background(), nil, ResearchInput{Query: "Edge AI", Save: true})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "edge_ai_9f1c2d3e"), got.RunDir)
	m, err := export.ReadManifest(got.RunDir)
	require.NoError(t, err)
	assert.Equal(t, got.RunID, m.RunID)
	assert.FileExists(t, filepath.Join(got.RunDir, "edge_ai.md"))
}

func TestResearchService_Research_EmptyQuery(t *testing.T) {
	pipeline := newMockOrchestrator()
	pipeline.On("Run", mock.Anything, "  ").
		Return(nil, &orchestrator.ConfigurationError{Field: "query", Reason: "must not be empty"}).Once()
	svc, _ := newService(t, pipeline)

	_, _, err := svc.Research(context.Background(), nil, ResearchInput{Query: "  "})
	require.Error(t, err)
	assert.ErrorIs(t, err, orchestrator.ErrConfiguration)
}

func TestResearchService_CompileSlides(t *testing.T) {
	svc, _ := newService(t, newMockOrchestrator())

	_, got, err := svc.CompileSlides(context.Background(), nil, CompileSlidesInput{
		Markdown: sampleReport,
		Query:    "Edge AI",
	})
	require.NoError(t, err)

	assert.Equal(t, "Edge AI", got.Title)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, 5, got.Slides)
	assert.Equal(t, 2, got.Sections)
	assert.Equal(t, 2, got.ContentSlides)

	var doc struct {
		Title  string `json:"title"`
		Slides []struct {
			Kind  string `json:"kind"`
			Title string `json:"title"`
		} `json:"slides"`
	}
	require.NoError(t, json.Unmarshal([]byte(got.Document), &doc))
	require.Len(t, doc.Slides, 5)
	assert.Equal(t, "title", doc.Slides[0].Kind)
	assert.Equal(t, "Overview", doc.Slides[1].Title)
}

func TestResearchService_CompileSlides_YAML(t *testing.T) {
	svc, _ := newService(t, newMockOrchestrator())

	_, got, err := svc.CompileSlides(context.Background(), nil, CompileSlidesInput{
		Markdown: sampleReport,
		Format:   "YAML",
	})
	require.NoError(t, err)
	assert.Equal(t, "yaml", got.Format)
	assert.Empty(t, got.Title)
	assert.Contains(t, got.Document, "kind: section")
}

func TestResearchService_CompileSlides_BadFormat(t *testing.T) {
	svc, _ := newService(t, newMockOrchestrator())

	_, _, err := svc.CompileSlides(context.Background(), nil, CompileSlidesInput{
		Markdown: sampleReport,
		Format:   "pptx",
	})
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestResearchService_ListAndReadReports(t *testing.T) {
	svc, out := newService(t, newMockOrchestrator())

	_, empty, err := svc.ListReports(context.Background(), nil, ListReportsInput{})
	require.NoError(t, err)
	assert.Empty(t, empty.Reports)

	older := sampleResult()
	older.RunID = "11111111-older"
	older.Query = "Older question"
	older.StartedAt = fixedNow.Add(-time.Hour)
	_, _, err = export.WriteRun(out, older)
	require.NoError(t, err)
	_, _, err = export.WriteRun(out, sampleResult())
	require.NoError(t, err)

	_, list, err := svc.ListReports(context.Background(), nil, ListReportsInput{})
	require.NoError(t, err)
	require.Len(t, list.Reports, 2)
	assert.Equal(t, "Edge AI", list.Reports[0].Name)
	assert.Equal(t, "2026-03-04T10:00:00Z", list.Reports[0].CreatedAt)
	assert.Equal(t, 1, list.Reports[0].Degradations)
	assert.Equal(t, "Older question", list.Reports[1].Name)

	_, limited, err := svc.ListReports(context.Background(), nil, ListReportsInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Reports, 1)

	_, report, err := svc.ReadReport(context.Background(), nil, ReadReportInput{ID: list.Reports[0].ID})
	require.NoError(t, err)
	assert.Equal(t, sampleReport, report.Report)

	_, _, err = svc.ReadReport(context.Background(), nil, ReadReportInput{ID: "missing"})
	assert.ErrorIs(t, err, status.ErrRunNotFound)
}

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T, svc *ResearchService) *mcp.ClientSession {
	t.Helper()

	server := NewResearchMCPServer(svc)
	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})
	return session
}

func TestMCPListTools(t *testing.T) {
	svc, _ := newService(t, newMockOrchestrator())
	session := setupServerClient(t, svc)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{"research", "compile_slides", "list_reports", "read_report"}, names)
}

func TestMCPResearch(t *testing.T) {
	pipeline := newMockOrchestrator()
	pipeline.On("Run", mock.Anything, "Edge AI").Return(sampleResult(), nil).Once()
	svc, _ := newService(t, pipeline)
	session := setupServerClient(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "research",
		Arguments: ResearchInput{Query: "Edge AI"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "research should not return an error")
	require.NotNil(t, result.StructuredContent)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var output ResearchOutput
	require.NoError(t, json.Unmarshal(raw, &output))

	assert.Equal(t, "9f1c2d3e-aaaa-bbbb-cccc-000000000001", output.RunID)
	assert.Equal(t, 5, output.Slides)
	assert.True(t, output.Degraded)
}

func TestMCPCompileSlides(t *testing.T) {
	svc, _ := newService(t, newMockOrchestrator())
	session := setupServerClient(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "compile_slides",
		Arguments: CompileSlidesInput{Markdown: sampleReport, Query: "Edge AI"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var output CompileSlidesOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Equal(t, 2, output.Sections)
	assert.True(t, json.Valid([]byte(output.Document)))
}

func TestMCPResearch_EmptyQuery(t *testing.T) {
	pipeline := newMockOrchestrator()
	pipeline.On("Run", mock.Anything, "").
		Return(nil, &orchestrator.ConfigurationError{Field: "query", Reason: "must not be empty"})
	svc, _ := newService(t, pipeline)
	session := setupServerClient(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "research",
		Arguments: map[string]any{"query": ""},
	})

	// The SDK may report handler errors at the protocol level or set IsError
	// on the result. Accept either behavior.
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "an empty query should set IsError")
}

func TestMCPCallUnknownTool(t *testing.T) {
	svc, _ := newService(t, newMockOrchestrator())
	session := setupServerClient(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
