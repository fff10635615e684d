package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/star/skywindow/internal/api"
	"github.com/star/skywindow/internal/auth"
	"github.com/star/skywindow/internal/metrics"
	"github.com/star/skywindow/internal/propagation"
	"github.com/star/skywindow/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("SKYWINDOW_LOG_LEVEL")),
	}))

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}
	cfg := loadServerConfig(logger)
	cfg.Auth = authCfg

	store := tle.NewStore()
	if path := os.Getenv("SKYWINDOW_TLE_FILE"); path != "" {
		ds, err := tle.LoadFile(path, logger)
		if err != nil {
			logger.Warn("TLE catalog not loaded, NORAD lookups disabled", "path", path, "error", err)
		} else {
			store.Set(ds)
			metrics.SetCatalog(len(ds.Satellites))
			logger.Info("loaded TLE catalog",
				"path", path,
				"count", len(ds.Satellites),
				"epoch_min", ds.EpochRange.Min.Format(time.RFC3339),
				"epoch_max", ds.EpochRange.Max.Format(time.RFC3339),
			)
		}
	}

	prop := propagation.NewPropagator(store, loadPropConfig(logger), logger)
	srv := api.NewServer(cfg, logger, store, prop)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.SweepLimiters(ctx)

	// Background goroutine to update the catalog age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "auth_enabled", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("SKYWINDOW_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("SKYWINDOW_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SKYWINDOW_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SKYWINDOW_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// positiveInt reads a positive integer variable, warning and keeping def on
// a bad value.
func positiveInt(logger *slog.Logger, name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+name+" value, using default", "value", v, "default", def)
		return def
	}
	return n
}

func loadServerConfig(logger *slog.Logger) api.Config {
	cfg := api.DefaultConfig()

	if v := os.Getenv("SKYWINDOW_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("SKYWINDOW_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYWINDOW_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	if v := os.Getenv("SKYWINDOW_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			logger.Warn("invalid SKYWINDOW_RATE_LIMIT_RPS value, using default", "value", v, "default", cfg.RateLimit.PerSecond)
		} else {
			cfg.RateLimit.PerSecond = rps
		}
	}
	cfg.RateLimit.Burst = positiveInt(logger, "SKYWINDOW_RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.MaxSamples = positiveInt(logger, "SKYWINDOW_MAX_SAMPLES", cfg.MaxSamples)
	cfg.MaxBatchTargets = positiveInt(logger, "SKYWINDOW_MAX_BATCH_TARGETS", cfg.MaxBatchTargets)

	logger.Info("server config",
		"addr", cfg.Addr,
		"trust_proxy", cfg.TrustProxy,
		"rate_limit_rps", cfg.RateLimit.PerSecond,
		"rate_limit_burst", cfg.RateLimit.Burst,
		"max_samples", cfg.MaxSamples,
		"max_batch_targets", cfg.MaxBatchTargets,
	)

	return cfg
}

func loadPropConfig(logger *slog.Logger) propagation.Config {
	cfg := propagation.Config{
		Workers: positiveInt(logger, "SKYWINDOW_PROP_WORKERS", runtime.NumCPU()),
	}
	logger.Info("propagation config", "workers", cfg.Workers)
	return cfg
}
