package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/metrics"
)

// Compile-time interface check.
var _ Client = (*OpenAIClient)(nil)

// DefaultMaxRetries is used when OpenAIConfig.MaxRetries is zero.
const DefaultMaxRetries = 3

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxRetries bounds retries of transient failures. Zero means
	// DefaultMaxRetries; a negative value disables retries.
	MaxRetries int
}

// OpenAIClient calls <BaseURL>/chat/completions.
type OpenAIClient struct {
	cfg    OpenAIConfig
	http   *http.Client
	logger logger.Logger
	// backoff returns the wait before retry attempt n (n >= 1).
	backoff func(attempt int) time.Duration
}

// NewOpenAIClient creates a client. Requests fail with ErrNotConfigured when
// cfg.APIKey is empty.
func NewOpenAIClient(cfg OpenAIConfig, log logger.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &OpenAIClient{
		cfg:    cfg,
		http:   &http.Client{},
		logger: log.WithFields(map[string]interface{}{"component": "llm"}),
		backoff: func(attempt int) time.Duration {
			return time.Duration(250*(1<<(attempt-1))) * time.Millisecond
		},
	}
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete issues the request, retrying rate limits, server errors and
// transport failures with exponential backoff.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		metrics.ModelCalls.WithLabelValues("not_configured").Inc()
		return "", ErrNotConfigured
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	payload := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.doWithRetry(ctx, body)
	metrics.ModelCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelCalls.WithLabelValues("error").Inc()
		c.logger.Warn("model call failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return "", err
	}
	metrics.ModelCalls.WithLabelValues("ok").Inc()
	return text, nil
}

func (c *OpenAIClient) doWithRetry(ctx context.Context, body []byte) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrLLMTimeout, ctx.Err())
			}
		}

		text, retry, err := c.do(ctx, endpoint, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrLLMTimeout, ctx.Err())
		}
		if !retry {
			return "", err
		}
	}
	return "", lastErr
}

// do performs one HTTP round trip. retry reports whether the failure is
// transient.
func (c *OpenAIClient) do(ctx context.Context, endpoint string, body []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", false, fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		return "", true, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("%w: status %d", ErrLLMRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("%w: status %d", ErrLLMUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", false, fmt.Errorf("%w: status %d: %s", ErrLLMUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("%w: decode response: %v", ErrLLMUnavailable, err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", false, ErrEmptyCompletion
	}
	return parsed.Choices[0].Message.Content, false, nil
}
