// Package agent implements the three model-backed research roles: the
// planner that decomposes a query, the synthesizer that answers one
// sub-question from retrieved sources, and the aggregator that writes the
// final report. Each role absorbs its own failures and reports them through
// an Outcome instead of an error.
package agent

import (
	"github.com/nescampos/ainalyst/internal/retriever"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ainalyst/agent")

// Role identifies a research agent.
type Role string

const (
	RolePlanning  Role = "planning"
	RoleResearch  Role = "research"
	RoleReporting Role = "reporting"
)

// Outcome is a stage result that may have been recovered from a failure.
// Value is always usable; Degraded and Note describe what was substituted.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Note     string
}

// Ok wraps a value produced without fallback.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Degrade wraps a fallback value with a human-readable note.
func Degrade[T any](v T, note string) Outcome[T] {
	return Outcome[T]{Value: v, Degraded: true, Note: note}
}

// Source is a cited reference.
type Source struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// SubAnswer is the researched answer to one sub-question.
type SubAnswer struct {
	Question string   `json:"question" yaml:"question"`
	Answer   string   `json:"answer" yaml:"answer"`
	Sources  []Source `json:"sources" yaml:"sources"`
}

// EnrichedResult is a search result plus the page text extracted for it.
type EnrichedResult struct {
	retriever.SearchResult
	ExtractedContent string
}

// Text returns the extracted content, or the search snippet when extraction
// produced nothing.
func (e EnrichedResult) Text() string {
	if e.ExtractedContent != "" {
		return e.ExtractedContent
	}
	return e.Content
}
