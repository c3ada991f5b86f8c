package agent

import (
	"context"
	"sync"

	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/retriever"
	"github.com/stretchr/testify/mock"
)

// mockLLM is a testify mock for llm.Client.
type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// stubGateway serves canned search results and page text.
type stubGateway struct {
	mu       sync.Mutex
	results  []retriever.SearchResult
	pages    map[string]string
	scraped  []string
	searched []string
}

func (g *stubGateway) Search(_ context.Context, query string) []retriever.SearchResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searched = append(g.searched, query)
	return g.results
}

func (g *stubGateway) ScrapeContent(_ context.Context, rawURL string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scraped = append(g.scraped, rawURL)
	return g.pages[rawURL]
}

func (g *stubGateway) Name() string { return "stub" }

// userMessage returns the user prompt of a request.
func userMessage(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			return m.Content
		}
	}
	return ""
}
