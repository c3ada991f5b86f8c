package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/nescampos/ainalyst/internal/metrics"
)

// Compile-time interface check.
var _ Gateway = (*TavilyGateway)(nil)

// TavilyGateway searches with the Tavily API and prefers Tavily's extract
// endpoint for page content.
type TavilyGateway struct {
	base
	apiKey string
}

// NewTavilyGateway creates the Tavily variant.
func NewTavilyGateway(cfg Config, opts ...Option) *TavilyGateway {
	return &TavilyGateway{
		base:   newBase(KindTavily, cfg, "https://api.tavily.com", opts),
		apiKey: strings.TrimSpace(cfg.TavilyAPIKey),
	}
}

type tavilySearchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

type tavilyExtractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Search returns Tavily results.
func (g *TavilyGateway) Search(ctx context.Context, query string) []SearchResult {
	ctx, span := g.startSearch(ctx, query)
	defer span.End()

	if g.apiKey == "" {
		return g.finish(span, query, nil, ErrMissingCredentials)
	}
	results, err := g.search(ctx, query)
	return g.finish(span, query, results, err)
}

func (g *TavilyGateway) search(ctx context.Context, query string) ([]SearchResult, error) {
	body := map[string]any{
		"query":          query,
		"max_results":    g.maxResults,
		"include_answer": true,
	}
	newReq, err := postJSON(g.endpoint("/search"), body, g.authHeaders())
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	var resp tavilySearchResponse
	if err := g.doJSON(ctx, newReq, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, SearchResult{
			URL:     r.URL,
			Title:   orUntitled(r.Title),
			Content: r.Content,
		})
	}
	return results, nil
}

// ScrapeContent tries Tavily's extract endpoint first and falls back to
// generic scraping.
func (g *TavilyGateway) ScrapeContent(ctx context.Context, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || !strings.HasPrefix(rawURL, "http") {
		return ""
	}

	if g.apiKey != "" {
		text, err := g.extract(ctx, rawURL)
		if err == nil && text != "" {
			metrics.ScrapeRequests.WithLabelValues(g.name, "extract").Inc()
			return text
		}
		if err != nil {
			g.logger.Debug("tavily extract failed, scraping directly", map[string]interface{}{
				"url":   rawURL,
				"error": err.Error(),
			})
		}
	}
	return g.base.ScrapeContent(ctx, rawURL)
}

func (g *TavilyGateway) extract(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	newReq, err := postJSON(g.endpoint("/extract"), map[string]any{"urls": []string{rawURL}}, g.authHeaders())
	if err != nil {
		return "", err
	}
	var resp tavilyExtractResponse
	if err := g.doJSON(ctx, newReq, &resp); err != nil {
		return "", err
	}
	for _, r := range resp.Results {
		if text := collapseWhitespace(r.RawContent); text != "" {
			return truncateRunes(text, MaxContentChars), nil
		}
	}
	return "", nil
}

func (g *TavilyGateway) endpoint(path string) string {
	return strings.TrimRight(g.opts.baseURL, "/") + path
}

func (g *TavilyGateway) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + g.apiKey}
}
