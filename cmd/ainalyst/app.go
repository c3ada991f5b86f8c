package main

import (
	"context"
	"fmt"

	"github.com/nescampos/ainalyst/internal/agent"
	"github.com/nescampos/ainalyst/internal/config"
	"github.com/nescampos/ainalyst/internal/llm"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/orchestrator"
	"github.com/nescampos/ainalyst/internal/retriever"
	"github.com/nescampos/ainalyst/internal/slides"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	compiler *slides.Compiler
	pipeline *orchestrator.Pipeline
	closers  []func() error
}

// loadConfig reads the configuration and applies the persistent flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg, nil
}

// newApp builds only what needs no network: config, logger and compiler.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	return &app{
		cfg:      cfg,
		log:      log,
		compiler: slides.NewCompiler(slides.WithLogger(log)),
	}, nil
}

// newResearchApp builds the full pipeline. An unreachable Redis disables the
// search cache instead of failing.
func newResearchApp(ctx context.Context, opts ...orchestrator.Option) (*app, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	cfg := a.cfg

	client := newModelClient(cfg.OpenAI, a.log)

	rc := retriever.Config{
		MaxResults:    cfg.Retriever.MaxResults,
		RatePerSecond: cfg.Retriever.RatePerSecond,
		SerpAPIKey:    cfg.Retriever.SerpAPIKey,
		TavilyAPIKey:  cfg.Retriever.TavilyAPIKey,
		ExaAPIKey:     cfg.Retriever.ExaAPIKey,
	}
	gw, err := retriever.New(cfg.Retriever.Kind, rc, retriever.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	if cfg.Cache.RedisAddr != "" {
		rdb, err := retriever.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			a.log.Warn("search cache disabled", map[string]interface{}{
				"addr":  cfg.Cache.RedisAddr,
				"error": err.Error(),
			})
		} else {
			gw = retriever.NewCachedGateway(gw, rdb, cfg.Cache.TTL, a.log)
			a.closers = append(a.closers, rdb.Close)
		}
	}

	tokens := cfg.Research.MaxTokens
	planner := agent.NewPlanner(client, agent.PlannerConfig{
		Model:        cfg.OpenAI.Model,
		MaxSubtopics: cfg.Research.MaxSubtopics,
		MaxTokens:    min(agent.PlannerMaxTokens, tokens),
	}, a.log)
	synth := agent.NewSynthesizer(client, gw, agent.SynthesizerConfig{
		Model:     cfg.OpenAI.Model,
		MaxTokens: min(agent.SynthesizerMaxTokens, tokens),
	}, a.log)
	aggregator := agent.NewAggregator(client, agent.AggregatorConfig{
		Model:     cfg.OpenAI.Model,
		MaxTokens: min(agent.AggregatorMaxTokens, tokens),
	}, a.log)

	capability := orchestrator.DetectCapability(cfg.OpenAI.APIKey != "", cfg.Retriever.Kind, rc)
	pcfg := orchestrator.Config{
		MaxSubtopics: cfg.Research.MaxSubtopics,
		Concurrency:  cfg.Research.Concurrency,
		Capability:   capability,
	}
	opts = append([]orchestrator.Option{orchestrator.WithLogger(a.log)}, opts...)
	a.pipeline = orchestrator.NewPipeline(pcfg, planner, synth, aggregator, a.compiler, opts...)
	a.closers = append(a.closers, func() error {
		a.pipeline.Close()
		return nil
	})

	a.log.Debug("pipeline ready", map[string]interface{}{
		"retriever":  gw.Name(),
		"model":      cfg.OpenAI.Model,
		"capability": capability.String(),
	})
	return a, nil
}

// Close releases everything newResearchApp opened, last first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// newModelClient maps the openai config section onto the model client.
func newModelClient(oc config.OpenAIConfig, log logger.Logger) *llm.OpenAIClient {
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:     oc.APIKey,
		BaseURL:    oc.BaseURL,
		Model:      oc.Model,
		Timeout:    oc.Timeout,
		MaxRetries: oc.MaxRetries,
	}, log)
}
