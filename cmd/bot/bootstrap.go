package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"hybrid-trading-bot/internal/config"
	"hybrid-trading-bot/internal/decisionlog"
	"hybrid-trading-bot/internal/engine"
	"hybrid-trading-bot/internal/interfaces"
	"hybrid-trading-bot/internal/llm"
	"hybrid-trading-bot/internal/llm/llmobs"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/memory"
	"hybrid-trading-bot/internal/news"
	"hybrid-trading-bot/internal/trace"
)

// initializeSystem initializes env, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*config.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old decision logs if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("BOT_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := decisionlog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeNews returns the news searcher, or nil when the search service
// is not configured
func initializeNews(ctx context.Context, cfg *config.Config) interfaces.NewsSearcher {
	if !cfg.Services.News.Configured() {
		logger.Warn(ctx, "News search service not configured")
		return nil
	}
	return news.NewService(cfg.Services.News.URL, cfg.Services.News.APIKey)
}

// initializeAnalyzer returns the LLM analyzer with observability, or nil
// when no primary model is configured
func initializeAnalyzer(ctx context.Context, cfg *config.Config) interfaces.Analyzer {
	if !cfg.Models.Primary.Configured() {
		logger.Warn(ctx, "No primary LLM model configured")
		return nil
	}
	if cfg.Models.Fallback.Configured() {
		logger.Info(ctx, "LLM fallback configured", "model", cfg.Models.Fallback.Model)
	}
	return llmobs.Wrap(llm.NewGateway(cfg.Models.Primary, cfg.Models.Fallback))
}

// initializeMemory returns the shared memory store, or nil when the memory
// service is not configured
func initializeMemory(ctx context.Context, cfg *config.Config) interfaces.MemoryStore {
	if !cfg.Services.Memory.Configured() {
		logger.Warn(ctx, "Shared memory service not configured")
		return nil
	}
	token := cfg.Services.Memory.Token
	if token == "" {
		token = cfg.Services.Memory.APIKey
	}
	return memory.NewClient(cfg.Services.Memory.URL, token)
}

// initializeEngine wires the confirmation engine from its collaborators
func initializeEngine(ctx context.Context, cfg *config.Config) *engine.Engine {
	eng := engine.New(engine.Params{
		MinImpactScore:   cfg.Strategy.MinImpactScore,
		CooldownInterval: time.Duration(cfg.Strategy.NewsCheckIntervalSec) * time.Second,
		NewsTimeframe:    cfg.Strategy.NewsTimeframe,
	},
		initializeNews(ctx, cfg),
		initializeAnalyzer(ctx, cfg),
		initializeMemory(ctx, cfg),
	)

	if eng.Degraded() {
		logger.Warn(ctx, "Running in degraded mode (technical analysis only) - all entries approved")
	} else {
		logger.Info(ctx, "All AI collaborators initialized")
	}

	return eng
}
