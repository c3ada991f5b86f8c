package retriever

import (
	"net/http"
	"time"

	"github.com/nescampos/ainalyst/internal/logger"
	"golang.org/x/time/rate"
)

// Option customizes a Gateway or Scraper.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
	scraper    *Scraper
	backoff    func(attempt int) time.Duration
}

// WithBaseURL overrides the provider API root (scheme and host).
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the client used for provider API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLimiter replaces the token bucket guarding provider API calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithScraper sets the page extractor used by ScrapeContent.
func WithScraper(s *Scraper) Option {
	return func(o *options) { o.scraper = s }
}

// WithBackoff sets the wait before 429 retry attempt n (n >= 1).
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(o *options) { o.backoff = fn }
}

func buildOptions(cfg Config, defaultBase string, opts []Option) options {
	o := options{baseURL: defaultBase}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if o.limiter == nil {
		limit := rate.Inf
		if cfg.RatePerSecond > 0 {
			limit = rate.Limit(cfg.RatePerSecond)
		}
		o.limiter = rate.NewLimiter(limit, 1)
	}
	if o.logger == nil {
		o.logger = logger.NewNoOpLogger()
	}
	if o.scraper == nil {
		o.scraper = NewScraper(o.logger)
	}
	if o.backoff == nil {
		o.backoff = func(attempt int) time.Duration {
			d := time.Second << (attempt - 1)
			if d > 30*time.Second {
				d = 30 * time.Second
			}
			return d
		}
	}
	return o
}
