// go_ytstamps serves YouTube chapter timestamps and summaries.
//
// Exposes the video_timestamps and video_transcript MCP tools and a small
// REST API (POST /generate) backed by the same pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_ytstamps/internal/engine"
	"github.com/anatolykoptev/go_ytstamps/internal/engine/journal"
	"github.com/anatolykoptev/go_ytstamps/internal/engine/sources"
	"github.com/anatolykoptev/go_ytstamps/internal/engine/synth"
	"github.com/anatolykoptev/go_ytstamps/internal/stampserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	llmClient, err := engine.NewCompleter(cfg)
	if err != nil {
		slog.Error("llm client init failed", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := journal.Open(context.Background(), cfg)
	if err != nil {
		slog.Warn("diagnostics journal unavailable, logging only", slog.Any("error", err))
		store = nil
	}
	var rec engine.Recorder = engine.LogRecorder{}
	var diags stampserver.DiagnosticsReader
	if store != nil {
		defer store.Close()
		rec = engine.MultiRecorder{rec, store}
		diags = store
	}

	cache := engine.NewCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	defer cache.Close()

	pipeline := &stampserver.Pipeline{
		Acquirer:        sources.NewAcquirerFromConfig(cfg, rec),
		Timestamper:     synth.NewTimestamper(llmClient, rec),
		Summarizer:      synth.NewSummarizer(llmClient, rec),
		Cache:           cache,
		RejectSynthetic: cfg.RejectSynthetic,
	}

	apiPort := env.Str("API_PORT", "3002")
	api := stampserver.NewAPI(pipeline, diags)
	go func() {
		if err := api.Start(":" + apiPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("rest api failed", slog.Any("error", err))
		}
	}()

	mcpPort := env.Str("MCP_PORT", "8893")
	slog.Info("starting go_ytstamps",
		slog.String("mcp_port", mcpPort),
		slog.String("api_port", apiPort),
		slog.String("app_env", cfg.AppEnv),
		slog.String("llm_provider", cfg.LLMProvider),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_ytstamps",
		Version: version,
	}, nil)
	stampserver.RegisterTools(server, pipeline)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_ytstamps",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = api.Shutdown(ctx)
}

func loadConfig() (engine.Config, error) {
	order, err := engine.ParseChannelOrder(env.Str("TRANSCRIPT_ORDER", "auto"))
	if err != nil {
		return engine.Config{}, err
	}
	rejectSynthetic, _ := strconv.ParseBool(env.Str("REJECT_SYNTHETIC", "false"))

	cfg := engine.Config{
		AppEnv:          env.Str("APP_ENV", "development"),
		ChannelOrder:    order,
		PrimaryTimeout:  env.Duration("PRIMARY_TIMEOUT", sources.DefaultPrimaryTimeout),
		FetchTimeout:    env.Duration("FETCH_TIMEOUT", 10*time.Second),
		LookupURL:       env.Str("TRANSCRIPT_LOOKUP_URL", engine.DefaultLookupURL),
		Languages:       env.List("TRANSCRIPT_LANGS", "en"),
		RejectSynthetic: rejectSynthetic,

		LLMProvider:        env.Str("LLM_PROVIDER", "gokit"),
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:           env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 8192),
		LLMRequestsPerSec:  env.Float("LLM_RPS", 0),
		LLMBurst:           env.Int("LLM_BURST", 2),

		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 6*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		DiagSQLitePath: env.Str("DIAG_SQLITE_PATH", ""),
		DatabaseURL:    env.Str("DATABASE_URL", ""),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	return cfg, cfg.Validate()
}
