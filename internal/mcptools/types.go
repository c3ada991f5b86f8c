package mcptools

import "github.com/nescampos/ainalyst/internal/orchestrator"

// --- MCP tool types ---
// Field names are the wire names; jsonschema tags become the tool schema
// descriptions.

// ResearchInput is the input for the research tool.
type ResearchInput struct {
	Query string `json:"query" jsonschema:"research question to investigate"`
	Save  bool   `json:"save,omitempty" jsonschema:"write the report, deck and manifest to the output directory"`
}

// ResearchOutput is the result of the research tool.
type ResearchOutput struct {
	RunID        string                        `json:"runId"`
	Query        string                        `json:"query"`
	Capability   string                        `json:"capability"`
	SubQuestions []string                      `json:"subQuestions"`
	Report       string                        `json:"report"`
	Slides       int                           `json:"slides"`
	Degraded     bool                          `json:"degraded"`
	Degradations []orchestrator.Degradation    `json:"degradations,omitempty"`
	Issues       []orchestrator.CoherenceIssue `json:"issues,omitempty"`
	RunDir       string                        `json:"runDir,omitempty"`
}

// CompileSlidesInput is the input for the compile_slides tool.
type CompileSlidesInput struct {
	Markdown string `json:"markdown" jsonschema:"markdown report with ## section headings"`
	Query    string `json:"query,omitempty" jsonschema:"research question used as the deck title"`
	Format   string `json:"format,omitempty" jsonschema:"json (default) or yaml"`
}

// CompileSlidesOutput is the result of the compile_slides tool.
type CompileSlidesOutput struct {
	Title         string `json:"title"`
	Slides        int    `json:"slides"`
	Sections      int    `json:"sections"`
	ContentSlides int    `json:"contentSlides"`
	Format        string `json:"format"`
	Document      string `json:"document"`
}

// ListReportsInput is the input for the list_reports tool.
type ListReportsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return, newest first (default: all)"`
}

// ListReportsOutput is the result of the list_reports tool.
type ListReportsOutput struct {
	Reports []ReportSummary `json:"reports"`
}

// ReportSummary is a brief overview of one saved run.
type ReportSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RunID        string `json:"runId,omitempty"`
	CreatedAt    string `json:"createdAt"` // RFC 3339
	Slides       int    `json:"slides"`
	Degradations int    `json:"degradations"`
}

// ReadReportInput is the input for the read_report tool.
type ReadReportInput struct {
	ID string `json:"id" jsonschema:"run directory name as returned by list_reports"`
}

// ReadReportOutput is the result of the read_report tool.
type ReadReportOutput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Report string `json:"report"`
}
