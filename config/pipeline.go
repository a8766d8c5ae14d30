package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/middleware"
)

// BuildPipeline constructs the middleware pipeline from the configured
// order. Unknown middleware names are skipped with a warning. The returned
// cleanup closes the cache store when one was opened; it is a no-op
// otherwise.
func BuildPipeline(cfg *Config, logger zerolog.Logger) (*middleware.Pipeline, func() error, error) {
	pipeline := middleware.NewPipeline(logger)
	cleanup := func() error { return nil }

	for _, name := range cfg.Middleware.Order {
		switch name {
		case "logging":
			pipeline.Use(middleware.NewLogging(logger))
		case "guardrails":
			pipeline.Use(middleware.NewGuardrails(logger))
		case "rate_limit":
			rl := cfg.Middleware.RateLimit
			pipeline.Use(middleware.NewRateLimit(logger, rl.RequestsPerMinute, rl.TokensPerMinute))
		case "cache":
			var store middleware.Store
			if path := cfg.Middleware.Cache.Path; path != "" {
				sqlStore, err := middleware.NewSQLiteStore(expandPath(path))
				if err != nil {
					return nil, nil, fmt.Errorf("failed to open cache store: %w", err)
				}
				store = sqlStore
				cleanup = sqlStore.Close
			} else {
				store = middleware.NewMemoryStore()
			}
			ttl := time.Duration(cfg.Middleware.Cache.TTLSeconds) * time.Second
			pipeline.Use(middleware.NewCache(logger, store, ttl))
		default:
			logger.Warn().Str("middleware", name).Msg("Unknown middleware name, skipping")
		}
	}
	return pipeline, cleanup, nil
}
