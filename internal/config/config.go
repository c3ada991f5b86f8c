// Package config loads runtime settings for the research pipeline from an
// optional ainalyst.yml file, a .env file, and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Retriever kinds accepted by RetrieverConfig.Kind.
var validRetrievers = map[string]bool{
	"web":     true,
	"serpapi": true,
	"tavily":  true,
	"exa":     true,
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting for one process.
type Config struct {
	OpenAI      OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Retriever   RetrieverConfig `mapstructure:"retriever" yaml:"retriever"`
	Research    ResearchConfig  `mapstructure:"research" yaml:"research"`
	Cache       CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Log         LogConfig       `mapstructure:"log" yaml:"log"`
	OutputDir   string          `mapstructure:"output_dir" yaml:"output_dir"`
	MetricsAddr string          `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// OpenAIConfig configures the OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Model   string        `mapstructure:"model" yaml:"model"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxRetries bounds retries of rate limits, 5xx and transport errors.
	// A negative value disables retries.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// RetrieverConfig selects and configures the search provider.
type RetrieverConfig struct {
	Kind          string  `mapstructure:"kind" yaml:"kind"`
	SerpAPIKey    string  `mapstructure:"serpapi_api_key" yaml:"serpapi_api_key"`
	TavilyAPIKey  string  `mapstructure:"tavily_api_key" yaml:"tavily_api_key"`
	ExaAPIKey     string  `mapstructure:"exa_api_key" yaml:"exa_api_key"`
	MaxResults    int     `mapstructure:"max_results" yaml:"max_results"`
	RatePerSecond float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
}

// ResearchConfig bounds the research stages.
type ResearchConfig struct {
	MaxSubtopics int `mapstructure:"max_subtopics" yaml:"max_subtopics"`
	MaxTokens    int `mapstructure:"max_tokens" yaml:"max_tokens"`
	Concurrency  int `mapstructure:"concurrency" yaml:"concurrency"`
}

// CacheConfig enables the Redis search cache when Addr is set.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"openai.api_key":            "OPENAI_API_KEY",
	"openai.base_url":           "OPENAI_BASE_URL",
	"openai.model":              "OPENAI_MODEL",
	"openai.timeout":            "OPENAI_TIMEOUT",
	"openai.max_retries":        "OPENAI_MAX_RETRIES",
	"retriever.kind":            "RETRIEVER",
	"retriever.serpapi_api_key": "SERPAPI_API_KEY",
	"retriever.tavily_api_key":  "TAVILY_API_KEY",
	"retriever.exa_api_key":     "EXA_API_KEY",
	"retriever.max_results":     "MAX_RESULTS",
	"retriever.rate_per_second": "RETRIEVER_RATE",
	"research.max_subtopics":    "MAX_SUBTOPICS",
	"research.max_tokens":       "MAX_TOKENS",
	"research.concurrency":      "CONCURRENCY",
	"cache.redis_addr":          "REDIS_ADDR",
	"cache.redis_password":      "REDIS_PASSWORD",
	"cache.redis_db":            "REDIS_DB",
	"cache.ttl":                 "CACHE_TTL",
	"log.level":                 "LOG_LEVEL",
	"log.format":                "LOG_FORMAT",
	"output_dir":                "OUTPUT_DIR",
	"metrics_addr":              "METRICS_ADDR",
}

// Load reads ainalyst.yml or ainalyst.yaml from dir when present, loads
// dir/.env into the environment without overriding existing variables, and
// applies environment overrides. A missing config file is not an error.
func Load(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	for _, name := range []string{"ainalyst.yml", "ainalyst.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		break
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-oss-20b")
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("retriever.kind", "web")
	v.SetDefault("retriever.max_results", 5)
	v.SetDefault("retriever.rate_per_second", 2.0)
	v.SetDefault("research.max_subtopics", 3)
	v.SetDefault("research.max_tokens", 5000)
	v.SetDefault("research.concurrency", 1)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("output_dir", "outputs")
}

// applyDefaults fills values that were explicitly set to zero.
func applyDefaults(cfg *Config) {
	cfg.Retriever.Kind = strings.ToLower(strings.TrimSpace(cfg.Retriever.Kind))
	if cfg.Retriever.Kind == "" {
		cfg.Retriever.Kind = "web"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-oss-20b"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Timeout <= 0 {
		cfg.OpenAI.Timeout = 60 * time.Second
	}
	if cfg.OpenAI.MaxRetries == 0 {
		cfg.OpenAI.MaxRetries = 3
	}
	if cfg.Retriever.MaxResults == 0 {
		cfg.Retriever.MaxResults = 5
	}
	if cfg.Research.MaxSubtopics == 0 {
		cfg.Research.MaxSubtopics = 3
	}
	if cfg.Research.MaxTokens == 0 {
		cfg.Research.MaxTokens = 5000
	}
	if cfg.Research.Concurrency == 0 {
		cfg.Research.Concurrency = 1
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !validRetrievers[c.Retriever.Kind] {
		return fmt.Errorf("%w: unknown retriever %q (want web, serpapi, tavily or exa)", ErrInvalidConfig, c.Retriever.Kind)
	}
	if c.Retriever.MaxResults < 1 {
		return fmt.Errorf("%w: max results must be positive, got %d", ErrInvalidConfig, c.Retriever.MaxResults)
	}
	if c.Research.MaxSubtopics < 1 {
		return fmt.Errorf("%w: max subtopics must be positive, got %d", ErrInvalidConfig, c.Research.MaxSubtopics)
	}
	if c.Research.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, c.Research.Concurrency)
	}
	if c.Research.MaxTokens < 1 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidConfig, c.Research.MaxTokens)
	}
	return nil
}
