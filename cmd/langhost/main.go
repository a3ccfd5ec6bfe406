package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	lhhttp "github.com/langtools/langhost/internal/adapter/http"
	"github.com/langtools/langhost/internal/adapter/mcp"
	otelAdapter "github.com/langtools/langhost/internal/adapter/otel"
	"github.com/langtools/langhost/internal/adapter/ristretto"
	"github.com/langtools/langhost/internal/adapter/ws"
	"github.com/langtools/langhost/internal/config"
	"github.com/langtools/langhost/internal/extension"
	"github.com/langtools/langhost/internal/logger"
	"github.com/langtools/langhost/internal/middleware"
	"github.com/langtools/langhost/internal/service"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(bootstrap)

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"mcp_enabled", cfg.MCP.Enabled,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// Telemetry
	providers, err := otelAdapter.Init(cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := otelAdapter.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// L1 cache
	cache, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Services ---
	hub := ws.NewHub()
	host := service.NewHost(extension.Default(), &cfg.LSP, cfg.Cache, hub, cache, metrics)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.LSP.ShutdownTimeout)
		defer cancel()
		host.StopAll(stopCtx)
	}()

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "langhost",
			Version: "0.1.0",
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{
			Resolver: host,
			Reader:   host,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mcpSrv.Stop(stopCtx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	// --- HTTP ---
	handlers := &lhhttp.Handlers{Host: host}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(lhhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(lhhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(lhhttp.Logger)
	r.Use(limiter.Handler)
	r.Use(otelAdapter.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Health endpoint
	r.Get("/health", healthHandler(cfg))

	// WebSocket endpoint. Registered outside the timeout group: the handler
	// blocks for the lifetime of the connection.
	r.Get("/ws", hub.HandleWS)

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))
		lhhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports daemon health and connection counts.
func healthHandler(cfg *config.Config) http.HandlerFunc {
	type healthStatus struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		MCP     bool   `json:"mcp"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:  "ok",
			Service: cfg.Logging.Service,
			MCP:     cfg.MCP.Enabled,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
