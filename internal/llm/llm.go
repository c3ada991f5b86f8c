// Package llm is the model-call boundary for the research pipeline: a
// role-tagged chat request in, one completion string out.
package llm

import (
	"context"
	"errors"
)

// Roles accepted in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrNotConfigured   = errors.New("LLM_NOT_CONFIGURED")
	ErrLLMTimeout      = errors.New("LLM_TIMEOUT")
	ErrLLMRateLimited  = errors.New("LLM_RATE_LIMITED")
	ErrLLMUnavailable  = errors.New("LLM_UNAVAILABLE")
	ErrEmptyCompletion = errors.New("LLM_EMPTY_COMPLETION")
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for a JSON object response.
	JSONMode bool
}

// Client produces one completion per request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// System and User build messages for the common two-message prompt.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
