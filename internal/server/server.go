// Package server implements the HTTP API server for Oráculo.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oraculo-ai/oraculo/internal/format"
	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/ratelimit"
	"github.com/oraculo-ai/oraculo/internal/storage"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
)

// Answerer produces a terminal outcome for one question. The
// orchestrator is the production implementation; tests substitute stubs.
type Answerer interface {
	Answer(ctx context.Context, q model.Question) model.Outcome
}

// Server is the Oráculo HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): MCPServer, Metrics.
type ServerConfig struct {
	// Required dependencies.
	DB        *storage.DB
	Answerer  Answerer
	Formatter *format.Formatter
	Logger    *slog.Logger

	// Optional dependencies (nil = disabled).
	MCPServer   *mcpserver.MCPServer
	Metrics     *telemetry.Metrics
	RateLimiter ratelimit.Limiter

	// HTTP server settings.
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	Version            string
	ModelName          string
	DefaultLocale      string
	TopProductsDefault int
	TopProductsMax     int
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                 cfg.DB,
		Answerer:           cfg.Answerer,
		Formatter:          cfg.Formatter,
		Metrics:            cfg.Metrics,
		Logger:             cfg.Logger,
		Version:            cfg.Version,
		ModelName:          cfg.ModelName,
		DefaultLocale:      cfg.DefaultLocale,
		TopProductsDefault: cfg.TopProductsDefault,
		TopProductsMax:     cfg.TopProductsMax,
	})

	// Each question costs a model round trip, so the insight endpoint is
	// rate limited per client IP. Direct dataset queries stay unlimited.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}
	insightRL := ratelimit.Middleware(cfg.RateLimiter, ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Question answering.
	mux.Handle("GET /sales-insights", insightRL(http.HandlerFunc(h.HandleSalesInsights)))

	// Direct dataset queries, no model involved.
	mux.HandleFunc("GET /top-products", h.HandleTopProducts)
	mux.HandleFunc("GET /stats", h.HandleStats)

	// Health and service metadata.
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /{$}", h.HandleRoot)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
