package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/format"
	"github.com/oraculo-ai/oraculo/internal/guardrail"
	"github.com/oraculo-ai/oraculo/internal/llm"
	"github.com/oraculo-ai/oraculo/internal/mcp"
	"github.com/oraculo-ai/oraculo/internal/orchestrator"
	"github.com/oraculo-ai/oraculo/internal/ratelimit"
	"github.com/oraculo-ai/oraculo/internal/server"
	"github.com/oraculo-ai/oraculo/internal/storage"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
	"github.com/oraculo-ai/oraculo/internal/tools"
	"github.com/oraculo-ai/oraculo/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("ORACULO_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("oraculo starting", "version", version, "port", cfg.Port, "model", cfg.OllamaModel)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	// Open the sales database and bring the schema up to date.
	db, err := storage.Open(ctx, cfg.DatabasePath, logger, storage.Options{
		MaxRows:      cfg.MaxQueryRows,
		QueryTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Populate the demo dataset on a fresh database.
	if cfg.SeedDemoData {
		if err := db.SeedDemoData(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	// Wire the question pipeline: guardrail → model loop → tools.
	registry := tools.NewSalesRegistry(db, logger)
	chat := llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.ModelTemperature, cfg.ModelTimeout)
	orch := orchestrator.New(chat, registry, guardrail.New(), logger, cfg.MaxToolRounds)
	formatter := format.New(cfg.OllamaModel, cfg.DefaultLocale)

	// Create MCP server (mounted at /mcp).
	mcpSrv := mcp.New(registry, db, logger)

	// Rate limit the insight endpoint; each question costs a model call.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = memLimiter.Close() }()
		limiter = memLimiter
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		logger.Info("rate limiting: disabled")
	}

	// Create and start HTTP server.
	srv := server.New(server.ServerConfig{
		DB:                 db,
		Answerer:           orch,
		Formatter:          formatter,
		Logger:             logger,
		MCPServer:          mcpSrv.MCPServer(),
		Metrics:            metrics,
		RateLimiter:        limiter,
		Port:               cfg.Port,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		Version:            version,
		ModelName:          cfg.OllamaModel,
		DefaultLocale:      cfg.DefaultLocale,
		TopProductsDefault: cfg.TopProductsDefault,
		TopProductsMax:     cfg.TopProductsMax,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting new requests and drain in-flight
	// question loops before closing the database.
	slog.Info("oraculo shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("oraculo stopped")
	return nil
}
