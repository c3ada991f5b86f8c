// Package retriever provides the pluggable search and page-extraction
// capability used by the research pipeline. Every variant degrades to a
// single placeholder result instead of failing.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Retriever kinds accepted by New.
const (
	KindWeb     = "web"
	KindSerpAPI = "serpapi"
	KindTavily  = "tavily"
	KindExa     = "exa"
)

const (
	// PlaceholderURL is the neutral URL carried by placeholder results.
	PlaceholderURL = "https://example.com"

	defaultMaxResults = 5
	untitled          = "Untitled"
)

var (
	ErrUnknownRetriever   = errors.New("unknown retriever")
	ErrMissingCredentials = errors.New("missing API key")
	ErrUnexpectedStatus   = errors.New("unexpected HTTP status")
	ErrNoResults          = errors.New("provider returned no results")
)

// SearchResult is one search hit. URL may be empty for low-quality hits.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Gateway is the capability set every retriever variant provides.
type Gateway interface {
	// Search never returns an empty slice.
	Search(ctx context.Context, query string) []SearchResult

	// ScrapeContent returns the extracted page text, or "" on any failure.
	ScrapeContent(ctx context.Context, rawURL string) string

	// Name identifies the variant (web, serpapi, tavily, exa).
	Name() string
}

// Config carries provider credentials and limits. Only the key for the
// selected kind is consulted.
type Config struct {
	MaxResults    int
	RatePerSecond float64
	SerpAPIKey    string
	TavilyAPIKey  string
	ExaAPIKey     string
}

// New builds the Gateway for kind. Missing credentials are not an error;
// the variant serves placeholder results instead.
func New(kind string, cfg Config, opts ...Option) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindWeb:
		return NewWebGateway(cfg, opts...), nil
	case KindSerpAPI:
		return NewSerpAPIGateway(cfg, opts...), nil
	case KindTavily:
		return NewTavilyGateway(cfg, opts...), nil
	case KindExa:
		return NewExaGateway(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("retriever: %w %q", ErrUnknownRetriever, kind)
	}
}

// Placeholder returns the synthetic result substituted when a real lookup is
// impossible or fails.
func Placeholder(query string) SearchResult {
	return SearchResult{
		URL:   PlaceholderURL,
		Title: "Search results for: " + query,
		Content: fmt.Sprintf("This is a placeholder result for the query: %q. "+
			"In a full implementation, this would contain actual search results from the web.", query),
	}
}

// IsPlaceholder reports whether results is exactly the placeholder list.
func IsPlaceholder(results []SearchResult) bool {
	return len(results) == 1 &&
		results[0].URL == PlaceholderURL &&
		strings.HasPrefix(results[0].Title, "Search results for: ")
}

// HasCredentials reports whether the kind variant has what it needs to reach
// its provider. The web variant needs no key.
func HasCredentials(kind string, cfg Config) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindWeb:
		return true
	case KindSerpAPI:
		return strings.TrimSpace(cfg.SerpAPIKey) != ""
	case KindTavily:
		return strings.TrimSpace(cfg.TavilyAPIKey) != ""
	case KindExa:
		return strings.TrimSpace(cfg.ExaAPIKey) != ""
	default:
		return false
	}
}
