package main

import (
	"context"
	"fmt"
	"time"

	"financeiro/internal/backend"
	"financeiro/internal/cache"
	"financeiro/internal/config"
	"financeiro/internal/extraction"
	"financeiro/internal/identity"
	"financeiro/internal/services"
	"financeiro/internal/syncer"
)

func openBackend(ctx context.Context, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

func newIdentity(ctx context.Context, cfg *config.Config) (identity.Provider, error) {
	switch cfg.IdentityBackend {
	case "firebase":
		return identity.NewFirebase(ctx, cfg.FirebaseAPIKey, logger)
	case "static":
		users, err := identity.ParseStaticUsers(cfg.StaticUsers)
		if err != nil {
			return nil, fmt.Errorf("parse STATIC_USERS: %w", err)
		}
		logger.Info("Using static identity", "users", len(users))
		return identity.NewStatic(users).WithTTL(cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
	}
}

// newExtractor builds the Gemini-backed adapter. Without an API key the
// adapter still exists and reports every call as unavailable.
func newExtractor(cfg *config.Config) (*extraction.Adapter, *cache.LRUCache[string]) {
	responses := cache.NewLRUCache[string](cfg.ExtractionCacheSize, cfg.ExtractionCacheTTL)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, receipt and statement import disabled")
		return extraction.NewAdapter(nil, responses, logger), responses
	}
	gemini, err := extraction.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("Gemini client unavailable, import disabled", "error", err)
		return extraction.NewAdapter(nil, responses, logger), responses
	}
	logger.Info("Gemini extraction enabled", "model", cfg.GeminiModel)
	return extraction.NewAdapter(gemini, responses, logger), responses
}

func newDeps(cfg *config.Config, res *backend.BackendResult, ex services.Extractor) services.Deps {
	retry := syncer.DefaultLoadRetry()
	retry.MaxAttempts = cfg.LoadMaxAttempts
	return services.Deps{
		Store:     res.Backend,
		Extractor: ex,
		Notifier:  res.Notifier(),
		Sync: syncer.Config{
			Window:       cfg.SyncDebounce,
			WriteTimeout: 15 * time.Second,
		},
		LoadRetry:     retry,
		MemberAPrefix: cfg.MemberAEmailPrefix,
		Logger:        logger,
	}
}
