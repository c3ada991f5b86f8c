package retriever

import (
	"context"
	"net/url"
	"strings"
)

// Compile-time interface check.
var _ Gateway = (*WebGateway)(nil)

// WebGateway searches the DuckDuckGo instant-answer API. It needs no
// credentials.
type WebGateway struct {
	base
}

// NewWebGateway creates the generic web-search variant.
func NewWebGateway(cfg Config, opts ...Option) *WebGateway {
	return &WebGateway{base: newBase(KindWeb, cfg, "https://api.duckduckgo.com", opts)}
}

type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns the instant answer abstract followed by related topics.
func (g *WebGateway) Search(ctx context.Context, query string) []SearchResult {
	ctx, span := g.startSearch(ctx, query)
	defer span.End()

	results, err := g.search(ctx, query)
	return g.finish(span, query, results, err)
}

func (g *WebGateway) search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	endpoint := strings.TrimRight(g.opts.baseURL, "/") + "/?" + params.Encode()

	var resp ddgResponse
	if err := g.doJSON(ctx, getJSON(endpoint), &resp); err != nil {
		return nil, err
	}

	var results []SearchResult
	if resp.AbstractText != "" {
		title := resp.Heading
		if title == "" {
			title = query
		}
		results = append(results, SearchResult{
			URL:     resp.AbstractURL,
			Title:   title,
			Content: plainText(resp.AbstractText),
		})
	}

	// The abstract takes one of the result slots.
	remaining := g.maxResults - 1
	for _, topic := range resp.RelatedTopics {
		if remaining <= 0 {
			break
		}
		remaining--
		if topic.Text == "" {
			continue
		}
		results = append(results, SearchResult{
			URL:     topic.FirstURL,
			Title:   hostTitle(topic.FirstURL),
			Content: plainText(topic.Text),
		})
	}
	return results, nil
}

// hostTitle derives a display title from a URL's hostname.
func hostTitle(raw string) string {
	if raw == "" {
		return "Unknown Source"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "Unknown Source"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
