package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "moviefinder/internal/api/http"
	"moviefinder/internal/app"
	"moviefinder/internal/catalog"
	"moviefinder/internal/metrics"
	"moviefinder/internal/telemetry"
)

const serviceName = "moviefinder"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("catalogUpstream", cfg.CatalogUpstreamURL),
		slog.Duration("catalogTimeout", cfg.CatalogTimeout),
		slog.Int("catalogRetries", cfg.CatalogRetries),
		slog.Float64("rateLimitRPS", cfg.RateLimitRPS),
		slog.Int("rateLimitBurst", cfg.RateLimitBurst),
		slog.Bool("tracing", strings.TrimSpace(cfg.OTLPEndpoint) != ""),
	)

	retry := catalog.DefaultRetryConfig()
	retry.MaxAttempts = cfg.CatalogRetries
	catalogClient := catalog.NewClient(catalog.Config{
		Endpoint:  cfg.CatalogUpstreamURL,
		UserAgent: cfg.CatalogUserAgent,
		Client:    &http.Client{Timeout: cfg.CatalogTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Retry:     retry,
		Logger:    logger,
	})

	handler := apihttp.NewServer(catalogClient,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.CatalogTimeout*time.Duration(cfg.CatalogRetries) + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("moviefinder server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("moviefinder server stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
