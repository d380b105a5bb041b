package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/autopress/internal/ai"
	"github.com/bilgisen/autopress/internal/api"
	"github.com/bilgisen/autopress/internal/cache"
	"github.com/bilgisen/autopress/internal/catalog"
	"github.com/bilgisen/autopress/internal/config"
	"github.com/bilgisen/autopress/internal/feed"
	"github.com/bilgisen/autopress/internal/jobs"
	"github.com/bilgisen/autopress/internal/logger"
	"github.com/bilgisen/autopress/internal/media"
	"github.com/bilgisen/autopress/internal/scraper"
	"github.com/bilgisen/autopress/internal/storage"
)

// App holds every long-lived service of the pipeline
type App struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Store     storage.Store
	Cache     cache.Store
	Fetcher   *feed.Fetcher
	Links     *feed.Processor
	Extractor *scraper.Extractor
	Writer    *ai.Writer
	Runner    *jobs.Runner
}

// Build wires the services selected by cfg. The caller must Close the App.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()

	cat, err := catalog.Load(cfg.FeedCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed catalog: %w", err)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var kv cache.Store
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		kv = redisClient
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process locks and dedup")
		kv = cache.NewMemoryClient()
	}

	a := &App{
		Config:  cfg,
		Catalog: cat,
		Store:   store,
		Cache:   kv,
		Fetcher: feed.NewFetcher(cat, feed.Options{
			Timeout:      cfg.FeedTimeout,
			DefaultCount: cfg.FeedDefaultCount,
		}),
		Links: feed.NewProcessor(kv, cfg.ProcessedTTL),
		Extractor: scraper.NewExtractor(scraper.Options{
			Timeout:  cfg.ExtractTimeout,
			MaxChars: cfg.ExtractMaxChars,
		}),
		Writer: ai.NewWriter(newCompleter(cfg)),
	}

	deps := jobs.Deps{
		Jobs:      store,
		Articles:  store,
		Writer:    a.Writer,
		Extractor: a.Extractor,
		Feeds:     a.Fetcher,
		Links:     a.Links,
		Locks:     kv,
	}

	if cfg.ReplicateToken != "" {
		deps.Illustrator = ai.NewIllustrator(a.Writer, ai.NewReplicateClient(cfg.ReplicateToken, cfg.ReplicateModel))
	} else {
		log.Info().Msg("REPLICATE_API_TOKEN not set, image generation disabled")
	}

	if cfg.R2Enabled() {
		r2, err := media.NewR2Store(ctx, media.R2Config{
			Endpoint:  cfg.R2Endpoint,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.R2PublicURL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Media = r2
	}

	a.Runner = jobs.NewRunner(deps, jobs.Options{
		Delay:               cfg.GenerationDelay,
		DefaultCategoryName: cfg.DefaultCategoryName,
		DefaultLanguage:     cfg.DefaultLanguage,
		LockTTL:             cfg.RunLockTTL,
	})

	log.Info().
		Str("store", cfg.StoreDriver).
		Str("ai_provider", cfg.AIProvider).
		Int("feeds", cat.Len()).
		Bool("redis", cfg.RedisURL != "").
		Bool("images", deps.Illustrator != nil).
		Bool("r2", deps.Media != nil).
		Msg("Pipeline ready")

	return a, nil
}

// Handlers returns the HTTP handlers backed by this App
func (a *App) Handlers() *api.Handlers {
	return api.NewHandlers(a.Config, api.Deps{
		Catalog:   a.Catalog,
		Feeds:     a.Fetcher,
		Extractor: a.Extractor,
		Runner:    a.Runner,
		Store:     a.Store,
	})
}

func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// OpenStore opens the persistence backend named by cfg.StoreDriver
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return pg, nil
	default:
		fs, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return fs, nil
	}
}

func newCompleter(cfg *config.Config) ai.Completer {
	clientCfg := ai.ClientConfig{
		APIKey:     cfg.AIApiKey,
		Model:      cfg.AIModel,
		BaseURL:    cfg.AIBaseURL,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	}
	if cfg.AIProvider == "gemini" {
		return ai.NewGeminiClient(clientCfg)
	}
	return ai.NewGroqClient(clientCfg)
}
