package app

import (
	"log/slog"

	"marketstream/internal/infra"
	"marketstream/internal/infra/cache"
	"marketstream/internal/infra/storage"
	"marketstream/internal/market"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Metrics  *infra.Metrics
	Storage  *storage.Storage
	Cache    *cache.Cache
	Registry *market.Registry
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, storage,
// cache, hub registry).
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	b.Metrics = infra.NewMetrics()

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))

	// 4. Initialize Cache (optional)
	if cfg.Redis.Addr != "" {
		b.Cache = cache.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		slog.Info("✅ Redis cache configured", slog.String("addr", cfg.Redis.Addr))
	} else {
		slog.Info("Redis cache not configured, last-price lookups disabled")
	}

	// 5. Hub Registry
	recorder := NewStreamRecorder(b.Storage, b.Cache)
	b.Registry = market.NewRegistry(cfg.Feed.WSURL, recorder, b.Metrics)

	return nil
}
