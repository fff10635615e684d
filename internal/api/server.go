package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/skywindow/internal/auth"
	"github.com/star/skywindow/internal/health"
	"github.com/star/skywindow/internal/metrics"
	"github.com/star/skywindow/internal/propagation"
	"github.com/star/skywindow/internal/tle"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	Auth            auth.Config
	RateLimit       RateLimitConfig
	TrustProxy      bool  // honor X-Forwarded-For / X-Real-IP
	MaxSamples      int   // per-request cap on time-grid length
	MaxBatchTargets int   // per-request cap on batch targets
	MaxBodyBytes    int64 // request body cap
}

// DefaultConfig returns the settings used when no environment overrides are
// present.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		RateLimit:       RateLimitConfig{PerSecond: 5, Burst: 20, IdleTTL: 10 * time.Minute},
		MaxSamples:      20160,
		MaxBatchTargets: 1000,
		MaxBodyBytes:    1 << 20,
	}
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        Config
	store      *tle.Store
	prop       *propagation.Propagator
	limiter    *ipRateLimiter
}

// NewServer creates a configured HTTP server. store may be empty; NORAD
// lookups then fail with 503 until a catalog is loaded.
func NewServer(cfg Config, logger *slog.Logger, store *tle.Store, prop *propagation.Propagator) *Server {
	if store == nil {
		store = tle.NewStore()
	}
	s := &Server{
		logger:  logger,
		cfg:     cfg,
		store:   store,
		prop:    prop,
		limiter: newIPRateLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/constraints", constraintsHandler)
	mux.HandleFunc("POST /api/v1/evaluate", s.evaluateHandler)
	mux.HandleFunc("POST /api/v1/evaluate/batch", s.batchHandler)
	mux.HandleFunc("POST /api/v1/evaluate/moving", s.movingHandler)
	mux.HandleFunc("GET /api/v1/catalog", s.catalogHandler)
	mux.HandleFunc("GET /api/v1/catalog/{norad_id}", s.catalogEntryHandler)

	// Middleware chain: metrics -> logging -> rate limit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = rateLimitMiddleware(s.limiter, cfg.TrustProxy)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// SweepLimiters drops idle per-client rate limiters until ctx is done.
func (s *Server) SweepLimiters(ctx context.Context) {
	ttl := s.cfg.RateLimit.IdleTTL
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if n := s.limiter.sweep(now); n > 0 {
				s.logger.Debug("rate limiters swept", "component", "api", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
