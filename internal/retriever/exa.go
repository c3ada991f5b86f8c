package retriever

import (
	"context"
	"fmt"
	"strings"
)

// Compile-time interface check.
var _ Gateway = (*ExaGateway)(nil)

// ExaGateway runs neural searches with page contents through the Exa API.
type ExaGateway struct {
	base
	apiKey string
}

// NewExaGateway creates the Exa variant.
func NewExaGateway(cfg Config, opts ...Option) *ExaGateway {
	return &ExaGateway{
		base:   newBase(KindExa, cfg, "https://api.exa.ai", opts),
		apiKey: strings.TrimSpace(cfg.ExaAPIKey),
	}
}

type exaSearchResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"results"`
}

// Search returns Exa results with their page text as content.
func (g *ExaGateway) Search(ctx context.Context, query string) []SearchResult {
	ctx, span := g.startSearch(ctx, query)
	defer span.End()

	if g.apiKey == "" {
		return g.finish(span, query, nil, ErrMissingCredentials)
	}
	results, err := g.search(ctx, query)
	return g.finish(span, query, results, err)
}

func (g *ExaGateway) search(ctx context.Context, query string) ([]SearchResult, error) {
	body := map[string]any{
		"query":         query,
		"type":          "neural",
		"useAutoprompt": true,
		"numResults":    g.maxResults,
		"contents":      map[string]any{"text": true},
	}
	endpoint := strings.TrimRight(g.opts.baseURL, "/") + "/search"
	newReq, err := postJSON(endpoint, body, map[string]string{"x-api-key": g.apiKey})
	if err != nil {
		return nil, fmt.Errorf("exa: marshal request: %w", err)
	}

	var resp exaSearchResponse
	if err := g.doJSON(ctx, newReq, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, SearchResult{
			URL:     r.URL,
			Title:   orUntitled(r.Title),
			Content: truncateRunes(collapseWhitespace(r.Text), MaxContentChars),
		})
	}
	return results, nil
}
