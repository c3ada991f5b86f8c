package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ainalyst/retriever")

// maxRateLimitRetries bounds the 429 backoff loop.
const maxRateLimitRetries = 3

// base holds the plumbing shared by every provider variant.
type base struct {
	name       string
	opts       options
	maxResults int
	logger     logger.Logger
}

func newBase(name string, cfg Config, defaultBase string, opts []Option) base {
	o := buildOptions(cfg, defaultBase, opts)
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return base{
		name:       name,
		opts:       o,
		maxResults: maxResults,
		logger:     o.logger.WithFields(map[string]interface{}{"retriever": name}),
	}
}

// Name identifies the variant.
func (b *base) Name() string { return b.name }

// ScrapeContent delegates to the generic page extractor.
func (b *base) ScrapeContent(ctx context.Context, rawURL string) string {
	text := b.opts.scraper.Scrape(ctx, rawURL)
	result := "ok"
	if text == "" {
		result = "empty"
	}
	metrics.ScrapeRequests.WithLabelValues(b.name, result).Inc()
	return text
}

// startSearch opens the search span shared by all variants.
func (b *base) startSearch(ctx context.Context, query string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "retriever.search", trace.WithAttributes(
		attribute.String("retriever.name", b.name),
		attribute.Int("retriever.query_length", len(query)),
	))
}

// finish applies the variant contract: failures and empty result sets become
// the placeholder, successful results are capped at maxResults.
func (b *base) finish(span trace.Span, query string, results []SearchResult, err error) []SearchResult {
	if err == nil && len(results) == 0 {
		err = ErrNoResults
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search_fallback")
		span.SetAttributes(attribute.Bool("retriever.placeholder", true))
		metrics.SearchRequests.WithLabelValues(b.name, "fallback").Inc()
		b.logger.Warn("search failed, using placeholder result", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return []SearchResult{Placeholder(query)}
	}

	if len(results) > b.maxResults {
		results = results[:b.maxResults]
	}
	span.SetAttributes(attribute.Int("retriever.results", len(results)))
	metrics.SearchRequests.WithLabelValues(b.name, "ok").Inc()
	b.logger.Debug("search completed", map[string]interface{}{
		"query":   query,
		"results": len(results),
	})
	return results
}

// doJSON sends req-building closure results through the rate limiter,
// retries 429 responses with backoff, and decodes a 200 body into out.
func (b *base) doJSON(ctx context.Context, newReq func(context.Context) (*http.Request, error), out any) error {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.opts.backoff(attempt)):
			}
		}
		if err := b.opts.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", b.name, err)
		}

		req, err := newReq(ctx)
		if err != nil {
			return fmt.Errorf("%s: build request: %w", b.name, err)
		}
		resp, err := b.opts.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s: request: %w", b.name, redactURLError(err))
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			resp.Body.Close()
			continue
		}

		err = decodeResponse(b.name, resp, out)
		resp.Body.Close()
		return err
	}
}

// secretParams are query parameters that carry credentials.
var secretParams = []string{"api_key", "apikey", "key", "token"}

// redactURLError rewrites the URL inside a transport error so credentials
// passed in the query string never reach logs or spans.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: redactURL(uerr.URL), Err: uerr.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	changed := false
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	u.User = nil
	return u.String()
}

func decodeResponse(name string, resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s: %w %d: %s", name, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", name, err)
	}
	return nil
}

// postJSON returns a request builder for a JSON POST.
func postJSON(endpoint string, body any, headers map[string]string) (func(context.Context) (*http.Request, error), error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}, nil
}

// getJSON returns a request builder for a GET.
func getJSON(endpoint string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

// orUntitled returns title, or "Untitled" when blank.
func orUntitled(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return untitled
}
