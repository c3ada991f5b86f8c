//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nescampos/ainalyst/internal/agent"
)

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

func readGolden(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(goldenDir(), name))
	if os.IsNotExist(err) {
		t.Skipf("golden file %s not found; run with -update to generate", name)
	}
	if err != nil {
		t.Fatalf("read golden %s: %v", name, err)
	}
	return string(data)
}

// stubModel is an OpenAI-compatible chat completion server. Each role is
// recognized by its token budget.
type stubModel struct {
	report     string
	failReport bool

	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string
}

func newStubModel(t *testing.T, report string) (*stubModel, *httptest.Server) {
	t.Helper()
	m := &stubModel{
		report:  report,
		calls:   make(map[string]int),
		prompts: make(map[string][]string),
	}
	srv := httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(srv.Close)
	return m, srv
}

func (m *stubModel) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req struct {
		MaxTokens int `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	role := "unknown"
	switch req.MaxTokens {
	case agent.PlannerMaxTokens:
		role = "planner"
	case agent.SynthesizerMaxTokens:
		role = "synthesizer"
	case agent.AggregatorMaxTokens:
		role = "aggregator"
	}

	m.mu.Lock()
	m.calls[role]++
	if n := len(req.Messages); n > 0 {
		m.prompts[role] = append(m.prompts[role], req.Messages[n-1].Content)
	}
	m.mu.Unlock()

	var content string
	switch role {
	case "planner":
		content = `{"sub_questions": ["What is edge AI?", "Who adopts edge AI?"]}`
	case "synthesizer":
		content = "Edge AI moves inference onto devices [1]."
	case "aggregator":
		if m.failReport {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		content = m.report
	default:
		http.Error(w, "unexpected token budget", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func (m *stubModel) callCount(role string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[role]
}

func (m *stubModel) lastPrompt(role string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prompts[role]
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// newStubSearch serves the Tavily search and extract endpoints.
func newStubSearch(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			var req struct {
				Query string `json:"query"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			slug := strings.NewReplacer(" ", "-", "?", "").Replace(strings.ToLower(req.Query))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]string{
					{"url": "https://example.org/" + slug, "title": "Primer: " + req.Query, "content": "snippet for " + req.Query},
				},
			})
		case "/extract":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]string{
					{"url": "https://example.org/page", "raw_content": "Full page text about edge inference."},
				},
			})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
