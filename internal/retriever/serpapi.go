package retriever

import (
	"context"
	"net/url"
	"strings"
)

// Compile-time interface check.
var _ Gateway = (*SerpAPIGateway)(nil)

// SerpAPIGateway searches Google organic results through SerpAPI.
type SerpAPIGateway struct {
	base
	apiKey string
}

// NewSerpAPIGateway creates the SerpAPI variant.
func NewSerpAPIGateway(cfg Config, opts ...Option) *SerpAPIGateway {
	return &SerpAPIGateway{
		base:   newBase(KindSerpAPI, cfg, "https://serpapi.com", opts),
		apiKey: strings.TrimSpace(cfg.SerpAPIKey),
	}
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search returns Google organic results.
func (g *SerpAPIGateway) Search(ctx context.Context, query string) []SearchResult {
	ctx, span := g.startSearch(ctx, query)
	defer span.End()

	if g.apiKey == "" {
		return g.finish(span, query, nil, ErrMissingCredentials)
	}
	results, err := g.search(ctx, query)
	return g.finish(span, query, results, err)
}

func (g *SerpAPIGateway) search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", g.apiKey)
	endpoint := strings.TrimRight(g.opts.baseURL, "/") + "/search.json?" + params.Encode()

	var resp serpAPIResponse
	if err := g.doJSON(ctx, getJSON(endpoint), &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		results = append(results, SearchResult{
			URL:     r.Link,
			Title:   orUntitled(plainText(r.Title)),
			Content: plainText(r.Snippet),
		})
	}
	return results, nil
}
